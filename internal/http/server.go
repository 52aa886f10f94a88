package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkstan/fusiondoc/internal/config"
	"github.com/tkstan/fusiondoc/internal/links"
	"github.com/tkstan/fusiondoc/internal/logger"
	"github.com/tkstan/fusiondoc/internal/merge"
	"github.com/tkstan/fusiondoc/internal/storage"
	"github.com/tkstan/fusiondoc/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    logger.Logger
}

func NewServer(cfg config.Config, log logger.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	fm, err := storage.NewFileManager(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}
	// Workspaces live in memory only, so blobs from an earlier run are orphans.
	if err := fm.Reset(); err != nil {
		return nil, fmt.Errorf("clear data dir: %w", err)
	}

	linkSvc := links.NewService(cfg.LinkSecret, cfg.BaseURL, cfg.LinkTTL)
	registry := workspace.NewRegistry(cfg.WorkspaceTTL, workspace.Options{
		Blobs:   fm,
		Merger:  merge.NewStub(cfg.MergeDelay),
		Revoker: linkSvc,
		Logger:  log,
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(log))
	engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	engine.Use(CORS(cfg.AllowedOrigins))

	api := NewAPI(cfg, registry, linkSvc, log)
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg, log: log}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server", "listening", map[string]interface{}{"addr": srv.Addr, "baseUrl": s.cfg.BaseURL})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("server", "shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
