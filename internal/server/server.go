// Package server exposes the accident map over HTTP: the Leaflet page,
// the search API and a server-sent event stream of the displayed markers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ppiankov/acmap/internal/filter"
	"github.com/ppiankov/acmap/internal/mapdata"
	"github.com/ppiankov/acmap/internal/mapview"
	"github.com/ppiankov/acmap/internal/model"
	"go.uber.org/zap"
)

// AccidentStore is the read side of the accident store used by handlers
type AccidentStore interface {
	Load(ctx context.Context) ([]model.Accident, error)
	Loaded() bool
	Filter(criteria model.Criteria) ([]model.Accident, error)
	Facet(f filter.Facet) ([]string, error)
}

// Server serves the map page and API
type Server struct {
	cfg      model.ServerConfig
	settings mapview.Settings
	store    AccidentStore
	feed     *mapdata.Feed
	markers  *mapview.Builder
	log      *zap.Logger
	router   *gin.Engine

	// heartbeat is the SSE keep-alive interval
	heartbeat time.Duration
}

// New creates a server and its router
func New(cfg model.ServerConfig, settings mapview.Settings, store AccidentStore, feed *mapdata.Feed, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if feed == nil {
		feed = mapdata.NewFeed(mapdata.DefaultBuffer)
	}

	s := &Server{
		cfg:       cfg,
		settings:  settings,
		store:     store,
		feed:      feed,
		markers:   mapview.NewBuilder(),
		log:       log,
		heartbeat: 30 * time.Second,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Feed returns the map data feed
func (s *Server) Feed() *mapdata.Feed {
	return s.feed
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	origins := s.cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	router.Use(cors.New(corsCfg))

	router.SetHTMLTemplate(indexTemplate)

	router.GET("/", s.index)
	router.GET("/healthz", s.health)

	api := router.Group("/api")
	{
		api.GET("/settings", s.getSettings)
		api.GET("/accidents", s.getAccidents)
		api.POST("/search", s.search)
		api.GET("/operators", s.facet(filter.FacetOperator))
		api.GET("/aircraft-types", s.facet(filter.FacetAircraftType))
		api.GET("/categories", s.facet(filter.FacetCategory))
		api.GET("/markers", s.getMarkers)
		api.GET("/stream", s.stream)
		api.POST("/reset-zoom", s.resetZoom)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Warmup loads the accident list and publishes it as the initial display
func (s *Server) Warmup(ctx context.Context) error {
	s.feed.ShowSpinner()
	defer s.feed.HideSpinner()

	_, err := s.load(ctx)
	return err
}

// load returns the full list. The first successful load becomes the
// initial display unless a search already published one.
func (s *Server) load(ctx context.Context) ([]model.Accident, error) {
	accidents, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.feed.Init(accidents) {
		s.log.Info("Published initial accident list", zap.Int("count", len(accidents)))
	}
	return accidents, nil
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully. Open event streams are closed on shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.feed.Close)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
