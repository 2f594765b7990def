package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/doh/internal/client"
	"github.com/xenking/doh/internal/domain/item"
	"github.com/xenking/doh/internal/prefs"
	"github.com/xenking/doh/internal/storage/postgres"
	"github.com/xenking/doh/pkg/activity"
)

// Run creates all dependencies, fetches the items of every configured store
// and logs the outcome. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return err
	}
	lg.Info("Initializing",
		zap.String("endpoint", endpoint),
		zap.Strings("stores", cfg.Stores),
	)

	store, closeStore, err := openPreferenceStore(ctx, lg, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	preferences := prefs.New(store)
	if err := applyUserData(ctx, preferences, cfg); err != nil {
		return err
	}

	deviceID, err := preferences.DeviceID(ctx)
	if err != nil {
		return errors.Wrap(err, "device id")
	}
	lg.Info("Device", zap.String("device_id", deviceID))

	counter := activity.NewCounter(func(active int64) {
		lg.Debug("Network activity", zap.Int64("active", active), zap.Bool("visible", active > 0))
	})
	indicator, err := activity.NewMetered(counter, m.MeterProvider().Meter("github.com/xenking/doh"))
	if err != nil {
		return errors.Wrap(err, "activity indicator")
	}

	c, err := client.New(endpoint, preferences, client.Options{
		Logger:         lg.Named("client"),
		Activity:       indicator,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create client")
	}

	return fetchStores(ctx, lg, c, cfg.Stores)
}

// fetchStores requests every store at once and waits for all of them.
func fetchStores(ctx context.Context, lg *zap.Logger, svc client.Service, stores []string) error {
	var g errgroup.Group
	for _, storeID := range stores {
		f := svc.GetItems(ctx, storeID)
		g.Go(func() error {
			items, err := f.Wait(ctx)
			if err != nil {
				reportFailure(lg, storeID, err)
				return errors.Wrapf(err, "store %q", storeID)
			}
			reportItems(lg, storeID, items)
			return nil
		})
	}
	return g.Wait()
}

func reportItems(lg *zap.Logger, storeID string, items []item.Item) {
	lg = lg.With(zap.String("store_id", storeID))
	lg.Info("Items fetched", zap.Int("count", len(items)))
	for _, it := range items {
		lg.Info("Item",
			zap.String("id", it.ID),
			zap.String("name", it.Name),
			zap.String("image_url", it.ImageURL),
			zap.Stringer("price", it.Price),
			zap.Stringer("discount", it.Discount),
		)
	}
}

func reportFailure(lg *zap.Logger, storeID string, err error) {
	lg = lg.With(zap.String("store_id", storeID), zap.Error(err))
	switch client.KindOf(err) {
	case client.KindNotAuthenticated:
		lg.Warn("Re-login required")
	case client.KindNoInternet:
		lg.Warn("No connectivity")
	case client.KindNetwork:
		lg.Warn("Network error")
	default:
		lg.Error("Failed to fetch items")
	}
}

func applyUserData(ctx context.Context, p *prefs.Preferences, cfg *Config) error {
	if cfg.ResetUserData {
		if err := p.ResetUserData(ctx); err != nil {
			return errors.Wrap(err, "reset user data")
		}
	}
	if cfg.LoginEmail != "" {
		email := cfg.LoginEmail
		if err := p.SetLastUsedLoginEmail(ctx, &email); err != nil {
			return errors.Wrap(err, "store login email")
		}
	}
	if email, ok, err := p.LastUsedLoginEmail(ctx); err != nil {
		return errors.Wrap(err, "load login email")
	} else if ok {
		zctx.From(ctx).Info("Last used login", zap.String("email", email))
	}
	return nil
}

// openPreferenceStore returns the PostgreSQL store when databaseURL is set
// and an in-memory store otherwise.
func openPreferenceStore(ctx context.Context, lg *zap.Logger, databaseURL string) (prefs.Store, func(), error) {
	if databaseURL == "" {
		lg.Info("Using in-memory preferences")
		return prefs.NewMemoryStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Using PostgreSQL preferences")
	return postgres.NewPreferenceStore(pool), pool.Close, nil
}
