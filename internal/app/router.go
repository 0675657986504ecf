package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/checkout"
	"github.com/meridian-pos/meridian-pos/internal/documents"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/jobs"
)

// RouterParams carries every handler the router mounts.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	DocumentsHandler *documents.Handler
	CatalogHandler   *catalog.Handler
	CheckoutHandler  *checkout.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter builds the chi router with the full middleware stack and routes.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  p.Logger,
		Config:  p.Config,
		Metrics: p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	if p.DocumentsHandler != nil {
		r.Route("/documents", p.DocumentsHandler.Routes)
	}
	if p.CatalogHandler != nil {
		r.Route("/products", p.CatalogHandler.Routes)
	}
	if p.CheckoutHandler != nil {
		r.Route("/checkout", p.CheckoutHandler.Routes)
	}
	if p.JobsHandler != nil {
		r.Route("/jobs", p.JobsHandler.Routes)
	}

	return r
}
