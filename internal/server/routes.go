package server

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-token-auth"
)

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) routes() {
	r := s.srv.Router()

	r.Get("/", s.root).SetName("root")
	r.Get("/api/health", s.health).SetName("health")

	// promhttp speaks net/http, so it is mounted on the raw fiber app
	s.app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
	)).Name("metrics")

	controller := auth.NewAuthController(s.auther, s.routing,
		auth.WithControllerLogger(s.logger.Named("controller")),
		auth.WithPhoneRegion(s.cfg.Phone.Region),
		auth.WithDebug(s.cfg.Server.Debug),
	)

	auth.RegisterAuthRoutes(r.Group("/api/auth"), controller)
}

func (s *Server) root(ctx router.Context) error {
	return auth.SendOK(ctx, http.StatusOK, fmt.Sprintf("%s API - Server is running", s.cfg.Server.AppName))
}

func (s *Server) health(ctx router.Context) error {
	checks := s.check(ctx.Context(), s.cfg.Persistence.GetPingTimeout())

	status := http.StatusOK
	out := HealthResponse{Status: "ok", Checks: checks}
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			out.Status = "degraded"
		}
	}

	return ctx.JSON(status, auth.Envelope{Success: status == http.StatusOK, Data: out})
}
