// Package api serves the prediction, profile and ranking views over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/monitoring"
	"github.com/recifedata/crimecast/internal/prediction"
	"github.com/recifedata/crimecast/internal/profile"
)

// Deps are the services the API reads from. Any of them may be nil when it
// failed to load; the endpoints that need it answer 503.
type Deps struct {
	Aggregates  *aggregate.Table
	Predictions *prediction.Service
	Batch       *prediction.Orchestrator
	Profiles    *profile.Service
	Metrics     *monitoring.Metrics
	// Components reports the load outcome of each startup component; a nil
	// error means the component is healthy.
	Components  map[string]error
	CORSOrigins []string
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps, router: chi.NewRouter()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	r.Get("/profiles", s.handleListProfiles)
	r.Post("/profiles/lookup", s.handleLookup)
	r.Get("/clusters", s.handleClusters)
	r.Post("/clusters/assign", s.handleAssign)
	r.Get("/ranking", s.handleRanking)

	r.Get("/prediction/meta", s.handlePredictionMeta)
	r.Post("/prediction", s.handlePredict)
	r.Post("/prediction/batch", s.handleBatch)

	r.Get("/history/{neighborhood}", s.handleHistory)
}

func (s *Server) metricsHandler() http.Handler {
	if s.deps.Metrics == nil {
		return http.NotFoundHandler()
	}
	return s.deps.Metrics.Handler()
}

// observe logs every request and records it under its route pattern, so
// path parameters do not explode the metric cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.deps.Metrics.ObserveRequest(r.Method, route, status, elapsed)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
