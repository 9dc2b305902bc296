// Package httpapi exposes graph building, path planning and path adjustment
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/kpath/internal/graphsync"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/learner"
	"github.com/abhisek/kpath/internal/logger"
	"github.com/abhisek/kpath/internal/relation"
)

// RouterConfig holds the collaborators behind the routes.
type RouterConfig struct {
	Service *learner.Service
	Builder *kgraph.Builder
	// Extractor proposes relations for unit files that list none. Optional.
	Extractor relation.Source
	// Sync mirrors built graphs to Neo4j. Optional.
	Sync *graphsync.Client
	Log  *logger.Logger
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := logger.OrNop(cfg.Log).With("component", "http")
	h := &handlers{
		svc:       cfg.Service,
		builder:   cfg.Builder,
		extractor: cfg.Extractor,
		sync:      cfg.Sync,
		log:       log,
	}
	if h.builder == nil {
		h.builder = kgraph.NewBuilder(kgraph.WithLogger(log))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))

	r.GET("/healthz", h.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/graphs", h.buildGraph)

		learners := v1.Group("/learners/:id")
		learners.POST("/paths", h.generatePath)
		learners.GET("/paths/latest", h.latestPath)
		learners.POST("/events", h.applyEvent)
		learners.GET("/adjustments", h.history)
		learners.GET("/mastery", h.listMastery)
		learners.PUT("/mastery/:kp", h.setMastery)
	}
	return r
}

// Server runs the router on an http.Server with graceful shutdown.
type Server struct {
	Engine *gin.Engine
	log    *logger.Logger
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg), log: logger.OrNop(cfg.Log)}
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
