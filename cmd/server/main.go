package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tkstan/fusiondoc/internal/config"
	httpserver "github.com/tkstan/fusiondoc/internal/http"
	"github.com/tkstan/fusiondoc/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.New(cfg.LogFile, cfg.IsProduction())
	code := run(cfg, zl)
	_ = zl.Sync()
	os.Exit(code)
}

func run(cfg config.Config, zl *logger.ZapLogger) int {
	srv, err := httpserver.NewServer(cfg, zl)
	if err != nil {
		zl.Error("server", "failed to create server", map[string]interface{}{"error": err})
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		zl.Error("server", "server stopped with error", map[string]interface{}{"error": err})
		return 1
	}
	return 0
}
