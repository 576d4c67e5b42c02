// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libracirc/internal/gateway"
	"libracirc/internal/platform/config"
	"libracirc/internal/platform/logger"
)

func main() {
	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "api-gateway"
	}
	logger.Init(opts)
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New().Prefix("API_")
	addr := cfg.Port("PORT", 8080)
	circulationURL := cfg.MustURL("CIRCULATION_URL")

	server := &http.Server{
		Addr: addr,
		Handler: gateway.NewRouter(gateway.Options{
			CirculationURL: circulationURL,
			AllowedOrigins: cfg.MayList("ALLOWED_ORIGINS", []string{"*"}),
			RPS:            cfg.MayFloat64("RPS", 100),
			Burst:          cfg.MayInt("BURST", 20),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("circulation", circulationURL.String()).Msg("API gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
