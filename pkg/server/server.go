// Package server exposes loaded graphs and exploration views over HTTP.
//
// One server holds one [pipeline.Loader]: a POST to /api/v1/load replaces
// the graph once the new load succeeds. Views are windows over the current
// graph whose state (center, radius, range, conditions) lives in a
// [session.Store], so a Redis backed store lets several instances share
// views. The window itself is rebuilt from that state when an instance has
// not seen the view yet.
//
// # Routes
//
//	GET    /health
//	GET    /metrics
//	POST   /api/v1/load
//	GET    /api/v1/status
//	GET    /api/v1/graph
//	GET    /api/v1/nodes/{id}
//	GET    /api/v1/nodes/{id}/segment
//	POST   /api/v1/views
//	GET    /api/v1/views/{id}
//	DELETE /api/v1/views/{id}
//	POST   /api/v1/views/{id}/center
//	POST   /api/v1/views/{id}/zoom
//	POST   /api/v1/views/{id}/grow-root     (also grow-leaf, shrink-root, shrink-leaf)
//	PUT    /api/v1/views/{id}/mode
//	POST   /api/v1/views/{id}/conditions
//	DELETE /api/v1/views/{id}/conditions/{index}
//	POST   /api/v1/views/{id}/click
//	GET    /api/v1/views/{id}/export?format=svg
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pangraph/pkg/dag/transform"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/session"
)

// Config configures a Server. Zero values select defaults.
type Config struct {
	Addr         string           // Listen address, ":8080" by default
	DataDir      string           // If set, load sources are resolved inside it
	AllowOrigins []string         // CORS origins, "*" by default
	Radius       int              // Radius of new views
	Palette      []colorful.Color // Condition colors
	ViewTTL      time.Duration    // Lifetime of an untouched view
	Layout       transform.Options
	Registry     *prometheus.Registry // Served at /metrics when set
	Logger       *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	loader   *pipeline.Loader
	views    session.Store
	logger   *log.Logger
	validate *validator.Validate

	mu    sync.Mutex
	live  map[string]*liveView
	graph graphCache
}

// New creates a server over loader and views.
func New(loader *pipeline.Loader, views session.Store, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if cfg.Radius == 0 {
		cfg.Radius = pipeline.DefaultRadius
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = session.DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Server{
		cfg:      cfg,
		loader:   loader,
		views:    views,
		logger:   cfg.Logger,
		validate: validator.New(),
		live:     make(map[string]*liveView),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/load", s.load)
		r.Get("/status", s.status)
		r.Get("/graph", s.getGraph)

		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Get("/", s.getNode)
			r.Get("/segment", s.getSegment)
		})

		r.Route("/views", func(r chi.Router) {
			r.Post("/", s.createView)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getView)
				r.Delete("/", s.deleteView)
				r.Post("/center", s.centerView)
				r.Post("/zoom", s.zoomView)
				r.Post("/grow-root", s.stepView(opGrowRoot))
				r.Post("/grow-leaf", s.stepView(opGrowLeaf))
				r.Post("/shrink-root", s.stepView(opShrinkRoot))
				r.Post("/shrink-leaf", s.stepView(opShrinkLeaf))
				r.Put("/mode", s.setMode)
				r.Post("/conditions", s.addCondition)
				r.Delete("/conditions/{index}", s.removeCondition)
				r.Post("/click", s.click)
				r.Get("/export", s.export)
			})
		})
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"loaded": s.loader.Current() != nil,
	})
}

// resolveSource maps a requested path into DataDir when one is configured.
func (s *Server) resolveSource(source string) string {
	if s.cfg.DataDir == "" {
		return source
	}
	rel := filepath.Clean("/" + strings.TrimPrefix(source, s.cfg.DataDir))
	return filepath.Join(s.cfg.DataDir, rel)
}
