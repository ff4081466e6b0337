// Command order-expirer cancels online orders whose payment stayed pending
// past the expiry window. It runs once by default; with -interval it keeps
// running on a timer until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/craftline/storefront/internal/domain/order"
	"github.com/craftline/storefront/internal/domain/pricing"
	"github.com/craftline/storefront/internal/notify"
	"github.com/craftline/storefront/internal/payment/razorpay"
	"github.com/craftline/storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		interval    time.Duration
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.DurationVar(&interval, "interval", 0, "run on a timer instead of once (e.g. 15m)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, interval); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("order expirer failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, interval time.Duration) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	// The expiry sweep only reads and cancels orders; the pricing engine and
	// gateway are wired to satisfy the service but never called, and
	// notifications go to the log.
	svc := order.NewService(
		repository.NewOrderStore(pool),
		pricing.NewEngine(repository.NewCatalogRepository(pool), repository.NewCouponRepository(pool)),
		razorpay.New(razorpay.Config{}, lg.Named("razorpay")),
		notify.NewLogDispatcher(lg.Named("notify")),
		lg.Named("order"),
	)

	sweep := func(ctx context.Context) error {
		cancelled, err := svc.CancelExpiredPendingOrders(ctx)
		if err != nil {
			return errors.Wrap(err, "cancel expired orders")
		}
		lg.Info("Expiry sweep finished", zap.Int("cancelled", cancelled))
		return nil
	}

	if interval <= 0 {
		return sweep(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if err := sweep(ctx); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := sweep(ctx); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
