package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/TronoSfera/Law-sub001/internal/api/http/handlers"
	"github.com/TronoSfera/Law-sub001/internal/auth"
	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Public         *handlers.PublicHandler
	AdminRequests  *handlers.AdminRequestsHandler
	Invoices       *handlers.InvoicesHandler
	SLA            *handlers.SLAHandler
	Dictionary     *handlers.DictionaryHandler
	Notifications  *handlers.NotificationsHandler
	Metrics        http.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	public := app.Group("/public")
	public.Post("/requests", cfg.Public.CreateRequest)

	client := public.Group("", cfg.AuthMiddleware.Handle, auth.RequireClient())
	client.Get("/requests/me", cfg.Public.Me)
	client.Get("/requests/me/thread", cfg.Public.Thread)
	client.Post("/requests/me/messages", cfg.Public.AddMessage)
	client.Post("/requests/me/attachments", cfg.Public.AddAttachment)
	client.Post("/requests/me/read", cfg.Public.MarkRead)
	client.Get("/notifications", cfg.Notifications.List)
	client.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	admin.Get("/requests/:id", cfg.AdminRequests.Get)
	admin.Post("/requests/:id/claim", cfg.AdminRequests.Claim)
	admin.Post("/requests/:id/assign", auth.RequireRoles(domain.RoleAdmin), cfg.AdminRequests.Assign)
	admin.Patch("/requests/:id/financials", cfg.AdminRequests.UpdateFinancials)
	admin.Post("/requests/:id/status", cfg.AdminRequests.ChangeStatus)
	admin.Get("/requests/:id/history", cfg.AdminRequests.History)
	admin.Get("/requests/:id/thread", cfg.AdminRequests.Thread)
	admin.Post("/requests/:id/messages", cfg.AdminRequests.AddMessage)
	admin.Post("/requests/:id/attachments", cfg.AdminRequests.AddAttachment)
	admin.Post("/requests/:id/read", cfg.AdminRequests.MarkRead)

	admin.Get("/requests/:id/invoices", cfg.Invoices.List)
	admin.Post("/requests/:id/invoices", cfg.Invoices.Create)
	admin.Get("/invoices/:id", cfg.Invoices.Get)
	admin.Patch("/invoices/:id", cfg.Invoices.Update)
	admin.Delete("/invoices/:id", cfg.Invoices.Delete)
	admin.Post("/invoices/:id/pay", auth.RequireRoles(domain.RoleAdmin), cfg.Invoices.MarkPaid)

	admin.Get("/sla/snapshot", cfg.SLA.Snapshot)

	admin.Get("/dictionary/statuses", cfg.Dictionary.ListStatuses)
	admin.Put("/dictionary/statuses", auth.RequireRoles(domain.RoleAdmin), cfg.Dictionary.UpsertStatuses)
	admin.Get("/dictionary/transitions", cfg.Dictionary.ListTransitions)
	admin.Put("/dictionary/transitions", auth.RequireRoles(domain.RoleAdmin), cfg.Dictionary.UpsertTransitions)

	admin.Post("/staff", auth.RequireRoles(domain.RoleAdmin), cfg.Auth.CreateStaff)

	admin.Get("/notifications", cfg.Notifications.List)
	admin.Post("/notifications/:id/read", cfg.Notifications.MarkRead)
}
