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
	"github.com/diagnosis/luxsuv-reservations/pkg/ratelimit"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/handlers"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/repository"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/service"
)

const serviceName = "auth"

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

	var limiter ratelimit.Limiter
	if rdb, err := ratelimit.NewRedisClient(ctx, cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, login rate limit disabled", "error", err)
	} else {
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, "login", cfg.Auth.LoginRateLimit, cfg.Auth.LoginWindow)
	}

	// Initialize repositories
	users := docstore.NewPostgresCollection(pool, domain.UsersCollection)
	userRepo := repository.NewUserRepository(users, store.WithTimeout(cfg.Database.QueryTimeout))

	// Initialize services
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)
	usersService := service.NewUsersService(userRepo, auth.NewBcryptHasher(), publisher)
	authService := service.NewAuthService(usersService, sessions)

	h := handlers.New(usersService, authService, sessions, auth.CookieOptions{
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
		Domain:   cfg.Auth.CookieDomain,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mw.NewMetrics(reg, serviceName)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r, limiter)

	port := cmp.Or(cfg.Server.Port, "8081")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down auth service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Auth service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting auth service", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
