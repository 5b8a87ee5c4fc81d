package routes

import (
	"log/slog"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/middleware"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Accounts  *handlers.AccountHandler
	Contacts  *handlers.ContactHandler
	Templates *handlers.TemplateHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler
}

// Limits configures the per-IP login limit and per-account write limit
type Limits struct {
	Login   middleware.RateLimitConfig
	Account middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	accounts auth.AccountFetcher,
	limits Limits,
	logger *slog.Logger,
) {
	router.Get("/health", h.Health.Health)

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(limits.Login)).Post("/auth/login", h.Auth.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager, accounts, logger))
		r.Use(middleware.RateLimitByAccount(limits.Account))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Post("/auth/password", h.Auth.ChangePassword)

		// Self or admin, checked in the handler
		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", h.Accounts.GetAccount)
			r.Get("/audit", h.Accounts.AuditTrail)
			r.Get("/audit/summary", h.Accounts.AuditSummary)
			r.Post("/features/{feature}/usage", h.Accounts.TrackUsage)
			r.Put("/features/{feature}", h.Accounts.SetFeature)
			r.Post("/activity", h.Accounts.RecordActivity)
			r.Put("/profile", h.Accounts.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))
				r.Put("/status", h.Accounts.ChangeStatus)
				r.Put("/plan", h.Accounts.ChangePlan)
				r.Post("/notes", h.Accounts.AddAdminNote)
			})
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.Contacts.ListContacts)
			r.Post("/", h.Contacts.CreateContact)
			r.Get("/{id}", h.Contacts.GetContact)
			r.Delete("/{id}", h.Contacts.DeleteContact)
			r.Post("/{id}/restore", h.Contacts.RestoreContact)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.Templates.ListTemplates)
			r.Post("/", h.Templates.CreateTemplate)
			r.Get("/{id}", h.Templates.GetTemplate)
			r.Post("/{id}/render", h.Templates.RenderTemplate)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/accounts", h.Accounts.ListAccounts)
			r.Post("/accounts", h.Accounts.ProvisionAccount)
			r.Get("/admin/dashboard/stats", h.Admin.GetDashboardStats)
		})
	})
}
