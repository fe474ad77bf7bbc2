// Package app wires the pricing API: storage, domain services, HTTP
// middleware and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/footwear-cart/internal/domain/cart"
	"github.com/xenking/footwear-cart/internal/domain/catalog"
	"github.com/xenking/footwear-cart/internal/domain/checkout"
	"github.com/xenking/footwear-cart/internal/domain/coupon"
	"github.com/xenking/footwear-cart/internal/fixtures"
	"github.com/xenking/footwear-cart/internal/handler"
	"github.com/xenking/footwear-cart/internal/storage/memory"
	"github.com/xenking/footwear-cart/internal/storage/postgres"
	"github.com/xenking/footwear-cart/internal/storage/redis"
	"github.com/xenking/footwear-cart/pkg/health"
	"github.com/xenking/footwear-cart/pkg/httpmiddleware"
)

const serviceName = "cart-api"

// stores groups the storage ports for the selected driver.
type stores struct {
	carts    cart.Store
	variants catalog.Repository
	coupons  coupon.Repository
	counter  coupon.RedemptionCounter
	ledger   coupon.Ledger
	orders   checkout.OrderRepository
	hints    checkout.HintStore
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	st, closeStores, err := openStores(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeStores()

	threshold, err := cfg.Pricing.Threshold()
	if err != nil {
		return err
	}

	// Domain services.
	validator := coupon.NewValidator(st.coupons, st.counter, cfg.Pricing.ValidateTimeout)
	cartSvc := cart.NewService(st.carts, st.variants, cfg.Pricing.DefaultCurrency)
	checkoutSvc, err := checkout.NewService(cartSvc, validator, st.ledger, st.orders, st.hints,
		checkout.Config{
			FreeShippingThreshold: threshold,
			CommitTimeout:         cfg.Pricing.CommitTimeout,
			HintTTL:               cfg.Pricing.HintTTL,
		},
		checkout.WithTracerProvider(m.TracerProvider()),
		checkout.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP handlers.
	h := handler.NewHandler(handler.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		SecureCookies: cfg.Auth.SecureCookies,
		ValidateLimit: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: handler.ActorKey,
		}),
	}, cartSvc, checkoutSvc)

	router := chi.NewRouter()
	router.Use(
		httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
		httpmiddleware.LogRequests(),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	router.Mount("/api", h.Routes())

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
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

// openStores builds the storage ports for cfg.Storage.Driver and registers
// their readiness checks. The returned func releases connections.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, healthSvc *health.Health) (*stores, func(), error) {
	if cfg.Storage.Driver == DriverMemory {
		lg.Warn("Using in-memory storage; data is lost on restart")
		return memoryStores(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	ledger := postgres.NewLedgerRepository(pool)
	st := &stores{
		carts:    postgres.NewCartRepository(pool),
		variants: postgres.NewCatalogRepository(pool),
		coupons:  postgres.NewCouponRepository(pool),
		counter:  ledger,
		ledger:   ledger,
		orders:   postgres.NewOrderRepository(pool),
		hints:    memory.NewHintStore(),
	}
	closers := []func(){pool.Close}

	if cfg.Redis.URL != "" {
		hints, err := redis.New(ctx, cfg.Redis.URL)
		if err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "connect to redis")
		}
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(hints))
		st.hints = hints
		closers = append(closers, func() {
			if err := hints.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		})
	} else {
		lg.Info("Redis URL not set, keeping coupon hints in memory")
	}

	return st, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func memoryStores() *stores {
	variants := memory.NewCatalog(fixtures.Variants()...)
	coupons := memory.NewCouponStore()
	for _, c := range fixtures.Coupons(time.Now()) {
		coupons.Put(c)
	}
	return &stores{
		carts:    memory.NewCartStore(),
		variants: variants,
		coupons:  coupons,
		counter:  coupons,
		ledger:   coupons,
		orders:   memory.NewOrderStore(),
		hints:    memory.NewHintStore(),
	}
}
