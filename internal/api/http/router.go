package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gunaso/grievance-service/internal/api/http/handlers"
	"github.com/gunaso/grievance-service/internal/auth"
	"github.com/gunaso/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Reference      *handlers.ReferenceHandler
	Complaints     *handlers.ComplaintsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/register", cfg.Users.Register)
	api.Post("/token", cfg.Users.Token)
	api.Get("/ministries", cfg.Reference.ListMinistries)
	api.Get("/departments", cfg.Reference.ListDepartments)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/profile", cfg.Users.Profile)
	protected.Patch("/profile", cfg.Users.UpdateProfile)

	// guarded per route; Group("") middleware would leak onto every later /api route
	superOnly := auth.RequireRole(domain.RoleSuper)
	protected.Put("/users/:id/profile", superOnly, cfg.Users.AssignScope)
	protected.Post("/ministries", superOnly, cfg.Reference.CreateMinistry)
	protected.Post("/departments", superOnly, cfg.Reference.CreateDepartment)

	complaints := protected.Group("/complaints")
	complaints.Post("/", auth.RequireRole(domain.RoleCitizen), cfg.Complaints.CreateComplaint)
	complaints.Get("/", cfg.Complaints.ListComplaints)
	complaints.Get("/stats", cfg.Complaints.Stats)
	complaints.Get("/:tracking_id", cfg.Complaints.GetComplaint)
	complaints.Post("/:tracking_id/status", cfg.Complaints.ChangeStatus)
	complaints.Post("/:tracking_id/remarks", cfg.Complaints.AddRemark)
	complaints.Get("/:tracking_id/updates", cfg.Complaints.ListUpdates)
}
