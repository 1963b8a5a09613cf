package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recipex/server/internal/cache"
	"github.com/recipex/server/internal/domain/measurement"
	"github.com/recipex/server/internal/domain/message"
	"github.com/recipex/server/internal/domain/prescription"
	"github.com/recipex/server/internal/domain/request"
	"github.com/recipex/server/internal/domain/user"
	"github.com/recipex/server/internal/handler"
	"github.com/recipex/server/internal/repository"
	"github.com/recipex/server/pkg/health"
	"github.com/recipex/server/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Optional Redis cache for the has-unseen-info polling endpoint. A nil
	// cache is a no-op, so everything downstream works without Redis.
	var counters *cache.Counters
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		counters = cache.NewCounters(rdb, cfg.CacheTTL)
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	measurementRepo := repository.NewMeasurementRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	prescriptionRepo := repository.NewPrescriptionRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Domain services.
	userService := user.NewService(userRepo)
	measurementService := measurement.NewService(measurementRepo, userRepo)
	messageService := message.NewService(messageRepo, userRepo, measurementRepo)
	requestService := request.NewService(requestRepo, userRepo)
	prescriptionService := prescription.NewService(prescriptionRepo, userRepo)

	// HTTP handlers.
	h := handler.New(
		userService,
		measurementService,
		messageService,
		requestService,
		prescriptionService,
		counters,
	)
	security := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	api := mux.NewRouter().PathPrefix("/api").Subrouter()
	api.Use(security.RequireAPIKey)
	h.Routes(api)

	// Mux: health endpoints + authenticated API routes on one server.
	root := http.NewServeMux()
	root.HandleFunc("/livez", healthSvc.LiveEndpoint)
	root.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	root.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
