package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/api/handler"
	apimw "github.com/starline/queue-callback/internal/api/middleware"
	"github.com/starline/queue-callback/internal/repository"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. The surface is operational only: health, metrics, and
// read-only queue state snapshots.
func NewRouter(
	repo repository.QueueRepository,
	managerLive func() bool,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	qh := handler.NewQueueHandler(repo, logger)
	hh := handler.NewHealthHandler(managerLive)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queues/{name}/entries", qh.ListEntries)
		r.Get("/queues/{name}/members", qh.ListMembers)
	})

	return r
}
