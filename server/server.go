package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plantfinder/config"
	"plantfinder/matcher"
	"plantfinder/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// UploadURLPrefix is where stored uploads are served from
const UploadURLPrefix = "/static/uploads"

// PlantMatcher finds the closest reference plant for image bytes
type PlantMatcher interface {
	FindBestMatch(ctx context.Context, data []byte) (matcher.Result, error)
}

// PlantStore serves the plant lookups exposed over HTTP
type PlantStore interface {
	ListPlants(ctx context.Context, limit int) ([]types.PlantSummary, error)
	GetPlantByID(ctx context.Context, id int64) (*types.Plant, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP front of the plant matcher
type Server struct {
	router  *gin.Engine
	cfg     config.ServerConfig
	matcher PlantMatcher
	plants  PlantStore
	logger  *zap.Logger
}

// New wires the routes. The upload directory is created when missing.
func New(cfg config.ServerConfig, m PlantMatcher, plants PlantStore, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create upload directory %s: %w", cfg.UploadDir, err)
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("cannot parse templates: %w", err)
	}

	if !cfg.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	s := &Server{
		router:  router,
		cfg:     cfg,
		matcher: m,
		plants:  plants,
		logger:  logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", s.ping)

	s.router.GET("/", s.home)
	s.router.GET("/upload", s.home)
	s.router.POST("/upload", limitBody(s.cfg.MaxUploadBytes), s.upload)
	s.router.Static(UploadURLPrefix, s.cfg.UploadDir)

	plants := s.router.Group("/plants")
	plants.GET("", s.listPlants)
	plants.GET("/:id", s.getPlant)
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
