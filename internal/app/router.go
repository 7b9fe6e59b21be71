package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paperledger/paperledger/internal/accounting/entries"
	"github.com/paperledger/paperledger/internal/batch"
	"github.com/paperledger/paperledger/internal/classifier"
	"github.com/paperledger/paperledger/internal/documents"
	"github.com/paperledger/paperledger/internal/fields"
	"github.com/paperledger/paperledger/internal/observability"
	"github.com/paperledger/paperledger/internal/reports"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	DocumentsHandler  *documents.Handler
	ClassifierHandler *classifier.Handler
	FieldsHandler     *fields.Handler
	EntriesHandler    *entries.Handler
	ReportsHandler    *reports.Handler
	BatchHandler      *batch.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the pipeline routes mounted.
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

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	r.Route("/documents", func(r chi.Router) {
		if params.DocumentsHandler != nil {
			params.DocumentsHandler.MountRoutes(r)
		}
		if params.ClassifierHandler != nil {
			params.ClassifierHandler.MountRoutes(r)
		}
		if params.FieldsHandler != nil {
			params.FieldsHandler.MountRoutes(r)
		}
		if params.EntriesHandler != nil {
			params.EntriesHandler.MountDocumentRoutes(r)
		}
	})
	if params.EntriesHandler != nil {
		r.Route("/entries", func(r chi.Router) {
			params.EntriesHandler.MountRoutes(r)
		})
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", func(r chi.Router) {
			params.ReportsHandler.MountRoutes(r)
		})
	}
	if params.BatchHandler != nil {
		r.Route("/batch", func(r chi.Router) {
			params.BatchHandler.MountRoutes(r)
		})
	}

	return r
}
