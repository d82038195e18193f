// Package httptransport wires the HTTP surface: auth endpoints, admin
// endpoints, health, and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigede/internal/transport/http/shared"
	adminmw "sigede/pkg/platform/middleware/admin"
	"sigede/pkg/platform/middleware/device"
	"sigede/pkg/platform/middleware/metadata"
	"sigede/pkg/platform/middleware/requestid"
	"sigede/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency. Name appears in the /healthz body.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// NewRouter assembles the full middleware chain and route table. The admin
// endpoints are mounted only when a token is configured.
func NewRouter(auth *AuthHandler, admin *AdminHandler, adminToken string, logger *slog.Logger, checks ...HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Parse)

	auth.Register(r)
	if adminToken != "" {
		r.Group(func(g chi.Router) {
			g.Use(adminmw.RequireToken(adminToken, logger))
			admin.Register(g)
		})
	}

	r.Get("/healthz", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := make(map[string]string, len(checks)+1)
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body[check.Name] = err.Error()
				continue
			}
			body[check.Name] = "ok"
		}
		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		shared.WriteJSON(w, status, body)
	}
}
