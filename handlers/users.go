package handlers

import (
	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	// 🔓 Public auth
	app.Post("/auth/register", userService.Register)
	app.Post("/auth/login", userService.Login)

	// 🔐 Authenticated — middleware attached per route so public routes
	// registered later are not caught by a catch-all "/" group
	app.Get("/auth/me", middleware.Auth(), userService.Me)
	app.Get("/me/referrals", middleware.Auth(), userService.MyReferrals)

	// 🔐 Admin — user management, promotion and referral reporting
	admin := app.Group("/admin", middleware.Auth(), middleware.RequireRole(models.RoleAdmin))
	admin.Get("/users", userService.ListUsers)
	admin.Get("/users/:id", userService.GetUser)
	admin.Delete("/users/:id", userService.DeleteUser)
	admin.Post("/users/:id/promote/admin", userService.PromoteToAdmin)
	admin.Post("/users/:id/promote/institute", userService.PromoteToInstitute)
	admin.Post("/institutes", userService.CreateInstitute)
	admin.Get("/institutes/:id/referrals", userService.ReferralReport)
}
