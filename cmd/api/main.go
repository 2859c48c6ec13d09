package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diagnosis/elevro/internal/http/handlers"
	"github.com/diagnosis/elevro/internal/mailer"
	"github.com/diagnosis/elevro/internal/notify"
	"github.com/diagnosis/elevro/internal/payments"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/internal/service"
	"github.com/diagnosis/elevro/pkg/auth"
	"github.com/diagnosis/elevro/pkg/config"
	"github.com/diagnosis/elevro/pkg/database"
	"github.com/diagnosis/elevro/pkg/events"
	"github.com/diagnosis/elevro/pkg/logger"
	mw "github.com/diagnosis/elevro/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Redis backs idempotent replays and rate limits; both degrade open.
	rdb, err := mw.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Invalid redis configuration", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	redisStore := mw.NewRedisStore(rdb)
	if err := redisStore.Ping(ctx); err != nil {
		logger.Warn("Redis unavailable, continuing without replay cache", "error", err)
	}

	health := map[string]mw.Pinger{"postgres": pool, "redis": redisStore}

	// Connect to event bus
	var eventBus events.EventBus = events.NopBus{}
	if natsBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
	} else {
		eventBus = natsBus
		health["nats"] = natsBus
	}
	defer eventBus.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	bannerRepo := repository.NewBannerRepository(pool)
	blogRepo := repository.NewBlogRepository(pool)

	// Initialize services
	userService := service.NewUserService(userRepo)
	testService := service.NewTestService(testRepo, eventBus)
	bookingService := service.NewBookingService(bookingRepo, testRepo, testService, eventBus)
	bannerService := service.NewBannerService(bannerRepo)
	blogService := service.NewBlogService(blogRepo)
	paymentBridge := payments.NewStripeBridge(cfg.Stripe.SecretKey, cfg.Stripe.Currency, eventBus)

	notifier := notify.New(mailer.New(cfg.Email))
	if err := notifier.Start(eventBus); err != nil {
		logger.Error("Failed to subscribe report notifier", "error", err)
	}

	limiter := mw.NewRateLimiter(rdb, mw.RateLimitConfig{
		Requests: cfg.Redis.RateLimit,
		Window:   cfg.Redis.RateWindow,
	})

	h := handlers.New(handlers.Deps{
		Tokens:      auth.NewIssuer(cfg.Auth.AccessTokenSecret),
		Users:       userService,
		Tests:       testService,
		Bookings:    bookingService,
		Banners:     bannerService,
		Blogs:       blogService,
		Payments:    paymentBridge,
		Idempotency: mw.IdempotencyMiddleware(redisStore, cfg.Redis.IdempotencyTTL),
		RateLimit:   limiter.Middleware,
	})

	metrics := mw.NewHTTPMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	// Setup router
	r := chi.NewRouter()
	r.Use(mw.TrustedProxy(cfg.Server.TrustProxy))
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("elevro-api"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health(health))
	r.Use(metrics.Middleware)
	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down elevro api...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting elevro api", "port", cfg.Server.Port, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	<-done
}
