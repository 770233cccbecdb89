package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/config"
	"github.com/diagnosis/luxsuv-reservations/pkg/database"
	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
	"github.com/diagnosis/luxsuv-reservations/pkg/events"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	mw "github.com/diagnosis/luxsuv-reservations/pkg/middleware"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/handlers"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/repository"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/service"
)

const serviceName = "reservations"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if bus, err := events.NewNATSEventBus(cfg.NATS.URL, serviceName); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
	} else {
		publisher = bus
	}
	defer publisher.Close()

	coll := docstore.NewPostgresCollection(pool, domain.ReservationsCollection)
	repo := repository.NewReservationRepository(coll, store.WithTimeout(cfg.Database.QueryTimeout))
	reservations := service.NewReservationService(repo, publisher)
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)
	h := handlers.New(reservations)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mw.NewMetrics(reg, serviceName)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r, sessions)

	port := cmp.Or(cfg.Server.Port, "8082")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down reservations service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Reservations service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting reservations service", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
}
