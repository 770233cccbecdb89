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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/diagnosis/luxsuv-reservations/pkg/config"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	mw "github.com/diagnosis/luxsuv-reservations/pkg/middleware"
	"github.com/diagnosis/luxsuv-reservations/services/gateway/internal/handlers"
	"github.com/diagnosis/luxsuv-reservations/services/gateway/internal/proxy"
)

const serviceName = "gateway"

func main() {
	cfg := config.Load()

	authProxy := proxy.NewServiceProxy("auth", cfg.Services.AuthURL, 30*time.Second)
	reservationsProxy := proxy.NewServiceProxy("reservations", cfg.Services.ReservationsURL, 30*time.Second)
	h := handlers.New(authProxy, reservationsProxy)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mw.NewMetrics(reg, serviceName)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := cmp.Or(cfg.Server.Port, "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gateway service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service", "port", port,
		"auth_url", cfg.Services.AuthURL, "reservations_url", cfg.Services.ReservationsURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}
