package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/orders"
	"github.com/odyssey-erp/odyssey-pos/internal/registers"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

// Probe checks one backing dependency for /readyz.
type Probe func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	OrdersHandler         *orders.Handler
	SalesHandler          *sales.Handler
	RegistersHandler      *registers.Handler
	InventoryHandler      *inventory.Handler
	PaymentMethodsHandler *paymentmethods.Handler
	JobHandler            *jobs.Handler
	Metrics               *observability.Metrics
	Probes                map[string]Probe
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", readiness(params.Logger, params.Probes))

	if params.OrdersHandler != nil {
		r.Route("/orders", params.OrdersHandler.MountRoutes)
	}
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.RegistersHandler != nil {
		r.Route("/registers", params.RegistersHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.PaymentMethodsHandler != nil {
		r.Route("/payment-methods", params.PaymentMethodsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func readiness(logger *slog.Logger, probes map[string]Probe) http.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(names))
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				logger.Warn("readiness probe failed", slog.String("probe", name), slog.Any("error", err))
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "up"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"checks": checks})
	}
}
