package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-routing-service/internal/api/http/handlers"
	"github.com/spec-kit/case-routing-service/internal/auth"
	"github.com/spec-kit/case-routing-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Cases          *handlers.CasesHandler
	Funnel         *handlers.FunnelHandler
	Auction        *handlers.AuctionHandler
	AuthMiddleware *auth.AuthMiddleware

	MinParticipationTier domain.AccessTier
	AdminTier            domain.AccessTier
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	cases := app.Group("/cases", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	cases.Post("", auth.RequireTier(cfg.AdminTier), cfg.Cases.CreateCase)
	cases.Get("", cfg.Cases.ListCases)
	cases.Get("/:id", cfg.Cases.GetCase)

	cases.Get("/:id/funnel", cfg.Funnel.GetFunnelState)
	cases.Post("/:id/route-international", auth.RequireTier(cfg.AdminTier), cfg.Funnel.RouteInternational)
	cases.Post("/:id/priority-response", cfg.Funnel.RecordPriorityResponse)
	cases.Post("/:id/panel-response", cfg.Funnel.RecordPanelResponse)

	cases.Post("/:id/bids", auth.RequireTier(cfg.MinParticipationTier), cfg.Auction.SubmitBid)
	cases.Get("/:id/bids", auth.RequireTier(cfg.AdminTier), cfg.Auction.ListBids)
	cases.Post("/:id/bids/:bidID/select", auth.RequireTier(cfg.AdminTier), cfg.Auction.SelectWinner)
}
