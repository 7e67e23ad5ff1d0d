package handlers

import (
	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccommodationRoutes(app *fiber.App, accService *services.AccommodationService) {
	// 🔓 Public browse — published listings only
	app.Get("/accommodations", accService.ListAccommodations)
	app.Get("/accommodations/:slug", accService.GetAccommodation)

	// 🔐 Listing management — institute/admin
	manage := app.Group("/manage", middleware.Auth(),
		middleware.RequireRole(models.RoleInstitute, models.RoleAdmin))
	manage.Get("/accommodations", accService.MyAccommodations)
	manage.Post("/accommodations", accService.CreateAccommodation)
	manage.Put("/accommodations/:id", accService.UpdateAccommodation)
	manage.Patch("/accommodations/:id", accService.UpdateAccommodation)
	manage.Post("/accommodations/:id/photos/url", accService.AddPhotoByURL)
	manage.Delete("/accommodations/:id", accService.DeleteAccommodation)

	// 🔐 Admin — verification badge
	admin := app.Group("/admin", middleware.Auth(), middleware.RequireRole(models.RoleAdmin))
	admin.Patch("/accommodations/:id/verify", accService.VerifyAccommodation)
}
