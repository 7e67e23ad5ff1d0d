package handlers

import (
	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCourseRoutes(app *fiber.App, courseService *services.CourseService) {
	// 🔓 Public catalog
	app.Get("/courses", courseService.ListCourses)
	app.Get("/courses/:slug", courseService.GetCourse)

	// 🔐 Institute/admin management
	manage := app.Group("/manage", middleware.Auth(),
		middleware.RequireRole(models.RoleInstitute, models.RoleAdmin))
	manage.Post("/courses", courseService.CreateCourse)
	manage.Put("/courses/:id", courseService.UpdateCourse)
	manage.Delete("/courses/:id", courseService.DeleteCourse)
}
