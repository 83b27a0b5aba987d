package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dfryer1193/ndar/internal/bootstrap"
	"github.com/dfryer1193/ndar/internal/config"
	"github.com/dfryer1193/ndar/internal/middleware"
	"github.com/dfryer1193/ndar/internal/rest"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := pflag.String("config", os.Getenv("NDAR_CONFIG"), "path to a YAML config file")
	port := pflag.Int64("port", 0, "listen port (overrides NDAR_PORT)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.Port = *port
	}
	bootstrap.SetupLogging(cfg.LogLevel)

	pkg, closeIndex, err := bootstrap.OpenPackage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open package")
	}
	defer func() {
		if err := closeIndex(); err != nil {
			log.Error().Err(err).Msg("Failed to close package index")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(r, pkg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info().Msg("Starting server on port :" + fmt.Sprint(cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
