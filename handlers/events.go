package handlers

import (
	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService) {
	// 🔓 Public — published upcoming events
	app.Get("/events", eventService.ListEvents)
	app.Get("/events/:slug", eventService.GetEvent)

	// 🔐 Authenticated — registration
	app.Post("/events/:id/register", middleware.Auth(), eventService.RegisterForEvent)
	app.Get("/me/events", middleware.Auth(), eventService.MyEventRegistrations)

	// 🔐 Admin — event CRUD
	admin := app.Group("/admin", middleware.Auth(), middleware.RequireRole(models.RoleAdmin))
	admin.Post("/events", eventService.CreateEvent)
	admin.Put("/events/:id", eventService.UpdateEvent)
	admin.Delete("/events/:id", eventService.DeleteEvent)
}
