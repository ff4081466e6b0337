// Package app wires configuration, storage, domain services, and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/order"
	"github.com/craftline/storefront/internal/domain/payment"
	"github.com/craftline/storefront/internal/domain/pricing"
	"github.com/craftline/storefront/internal/domain/rating"
	"github.com/craftline/storefront/internal/domain/slider"
	"github.com/craftline/storefront/internal/handler"
	"github.com/craftline/storefront/internal/notify"
	"github.com/craftline/storefront/internal/payment/phonepe"
	"github.com/craftline/storefront/internal/payment/razorpay"
	"github.com/craftline/storefront/internal/repository"
	"github.com/craftline/storefront/pkg/health"
	"github.com/craftline/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
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

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabaseCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := repository.NewCatalogRepository(pool)
	subcategoryRepo := repository.NewSubcategoryRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderStore := repository.NewOrderStore(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	sliderRepo := repository.NewSliderRepository(pool)

	// Payment gateway.
	provider, err := newPaymentProvider(cfg.Payment, lg)
	if err != nil {
		return err
	}

	// Notifications: AMQP when configured, log-only otherwise.
	var dispatcher notify.Dispatcher
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQPURL, lg.Named("notify"))
		if err != nil {
			return errors.Wrap(err, "connect amqp")
		}
		defer func() { _ = amqpDispatcher.Close() }()
		dispatcher = amqpDispatcher
	} else {
		lg.Info("AMQP URL not set, notifications are log-only")
		dispatcher = notify.NewLogDispatcher(lg.Named("notify"))
	}

	// Domain services.
	engine := pricing.NewEngine(catalogRepo, couponRepo)
	orderService := order.NewService(orderStore, engine, provider, dispatcher, lg.Named("order"))
	ratingService := rating.NewService(ratingRepo, lg.Named("rating"))
	sliderService := slider.NewService(sliderRepo, lg.Named("slider"))
	subcategoryService := catalog.NewSubcategoryService(subcategoryRepo, lg.Named("catalog"))

	// HTTP routes: health endpoints + API routes on one chi router.
	h := handler.NewHandler(orderService, ratingService, sliderService, subcategoryService)
	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(router)

	var apiHandler http.Handler = otelhttp.NewHandler(router, "storefront-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(apiHandler,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-User-ID", "X-User-Role"},
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

// newPaymentProvider selects the configured gateway.
func newPaymentProvider(cfg PaymentConfig, lg *zap.Logger) (payment.Provider, error) {
	switch cfg.Provider {
	case "razorpay":
		return razorpay.New(razorpay.Config{
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
		}, lg.Named("razorpay")), nil
	case "phonepe":
		return phonepe.New(phonepe.Config{
			MerchantID: cfg.PhonePeMerchantID,
			SaltKey:    cfg.PhonePeSaltKey,
			SaltIndex:  cfg.PhonePeSaltIndex,
		}, lg.Named("phonepe")), nil
	default:
		return nil, errors.Errorf("unknown payment provider: %q", cfg.Provider)
	}
}
