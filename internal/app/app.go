package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/notify"
	"github.com/xenking/storefront/internal/otp"
	"github.com/xenking/storefront/internal/security"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const otpKeyPrefix = "otp:"

// Telemetry provides the tracer and meter providers. *app.Telemetry from
// go-faster/sdk implements it.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			lg.Warn("Close redis", zap.Error(err))
		}
	}()

	healthSvc := health.New(
		health.Check{Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck("postgres", pool)},
		health.Check{Name: "redis", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck("redis", health.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))},
		health.Check{Name: "goroutines", Kind: health.Liveness, Func: health.GoroutineCountCheck(10000)},
		health.Check{Name: "gc", Kind: health.Liveness, Func: health.GCMaxPauseCheck(time.Second)},
	)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	bannerRepo := postgres.NewBannerRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Order events fan out to admin websocket subscribers.
	hub := notify.NewHub(lg.Named("events"), httpmiddleware.ParseOrigins(cfg.CORS.Origins).CheckOrigin)

	// Domain services.
	evaluator := coupon.NewRepoEvaluator(couponRepo)
	orderService, err := order.NewService(orderRepo, addressRepo, evaluator, order.Options{
		Notifier:       hub,
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	authenticator := security.NewAuthenticator(
		security.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		security.NewAPIKeys(apikeyRepo, []byte(cfg.Auth.APIKeyPepper)),
		userRepo,
	)
	otpService := otp.NewService(redis.NewOTPStore(rdb, otpKeyPrefix), otp.LogSender{}, otp.Config{
		TTL:    cfg.OTP.TTL,
		Expose: cfg.OTP.Expose,
	})
	if cfg.OTP.Expose {
		lg.Warn("Login codes are returned in responses; do not enable in production")
	}

	otpLimiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.OTP.Max,
		Window: cfg.OTP.Window,
	})
	go otpLimiter.RunCleanup(ctx)

	// HTTP handlers.
	h := handler.New(handler.Config{
		CookieSecure: cfg.Auth.CookieSecure,
		TokenTTL:     cfg.Auth.TokenTTL,
	}, handler.Deps{
		Orders:     orderService,
		Carts:      cart.NewService(cartRepo, productRepo),
		Coupons:    couponRepo,
		Evaluator:  evaluator,
		Addresses:  addressRepo,
		Users:      userRepo,
		Products:   productRepo,
		Categories: categoryRepo,
		Banners:    bannerRepo,
		OTP:        otpService,
		Auth:       authenticator,
		Events:     hub,
		OTPLimiter: otpLimiter,
	})
	router := h.Router(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
		httpmiddleware.LogRequests(),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", router)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Skip:   isProbe,
	})
	go limiter.RunCleanup(ctx)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			limiter.Middleware(),
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

		// Websocket connections are hijacked and not tracked by Shutdown.
		hub.Close()
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

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
