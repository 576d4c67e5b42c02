// cmd/circulation/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libracirc/internal/circulation"
	"libracirc/internal/clients"
	"libracirc/internal/eventstore"
	"libracirc/internal/platform/config"
	"libracirc/internal/platform/logger"
	"libracirc/internal/platform/telemetry"
	"libracirc/internal/policy"
	"libracirc/internal/rules"
	"libracirc/internal/storage"
)

func main() {
	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "circulation"
	}
	logger.Init(opts)
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New().Prefix("CIRC_")
	addr := cfg.Port("PORT", 8082)
	driver := cfg.MayEnum("STORE_DRIVER", storage.DriverSQLite, storage.DriverPostgres, storage.DriverPgx, storage.DriverSQLite)
	dsn := cfg.MayString("DATABASE_URL", "file:circulation.db?_journal_mode=WAL")
	policySource := cfg.MayEnum("POLICY_SOURCE", "store", "store", "http")
	storageURL := cfg.MayString("STORAGE_URL", "http://localhost:9130")
	recordEvents := cfg.MayBool("EVENTS", true)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "circulation",
		Endpoint:    config.New().MayString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure:    config.New().MayBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio: config.New().MayFloat64("OTEL_TRACES_SAMPLER_ARG", 1),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	db, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", driver).Msg("failed to open store")
	}
	defer db.Close()
	store := storage.NewStore(db)

	httpClient := clients.New(clients.Options{
		BaseURL: storageURL,
		Timeout: cfg.MayDuration("CLIENT_TIMEOUT", 5*time.Second),
		RPS:     cfg.MayFloat64("CLIENT_RPS", 50),
		Burst:   cfg.MayInt("CLIENT_BURST", 10),
	})

	var documents policy.DocumentSource = store
	if policySource == "http" {
		documents = clients.NewPolicyStorageClient(httpClient)
	}

	deps := circulation.Deps{
		Items:    clients.NewItemClient(httpClient),
		Users:    clients.NewUserClient(httpClient),
		Requests: clients.NewRequestClient(httpClient),
		Resolver: rules.NewResolver(store),
		Policies: policy.NewRepository(documents),
	}
	if recordEvents {
		deps.Events = eventstore.NewEventStore(db)
	}
	svc, err := circulation.NewService(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create circulation service")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.AccessLog)
	router.Use(middleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	})
	circulation.NewHandler(svc).Routes(router)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("store_driver", driver).
			Str("policy_source", policySource).
			Bool("events", recordEvents).
			Msg("starting circulation service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}
}
