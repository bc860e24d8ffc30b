package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lekka-app/lekka/internal/assistant"
	"github.com/lekka-app/lekka/internal/dashboard"
	"github.com/lekka-app/lekka/internal/identity"
	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/observability"
	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/profile"
	"github.com/lekka-app/lekka/internal/workforce"
	"github.com/lekka-app/lekka/jobs"
	"github.com/lekka-app/lekka/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Resolver identity.Resolver
	Metrics  *observability.Metrics

	LedgerHandler    *ledger.Handler
	InventoryHandler *inventory.Handler
	WorkforceHandler *workforce.Handler
	DashboardHandler *dashboard.Handler
	ReportHandler    *report.Handler
	AssistantHandler *assistant.Handler
	ProfileHandler   *profile.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with Lekka defaults.
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
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(identity.Middleware(params.Resolver, params.Logger))
		if params.LedgerHandler != nil {
			r.Route("/transactions", params.LedgerHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/products", params.InventoryHandler.MountRoutes)
		}
		if params.WorkforceHandler != nil {
			r.Route("/workers", params.WorkforceHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.AssistantHandler != nil {
			r.Route("/ai", params.AssistantHandler.MountRoutes)
		}
		if params.ProfileHandler != nil {
			r.Route("/profile", params.ProfileHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	return r
}
