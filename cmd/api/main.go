package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text", os.Stderr).WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.NewServer(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize server")
	}
	go srv.RunLimiterEviction(ctx)

	httpServer := srv.HTTPServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", httpServer.Addr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-quit
	log.Info("shutting down server")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := srv.Close(); err != nil {
		log.WithError(err).Error("close store")
	}

	log.Info("server exiting")
}
