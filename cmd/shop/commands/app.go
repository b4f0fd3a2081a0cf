package commands

import (
	"fmt"

	"github.com/dyluth/shop/internal/cartcache"
	"github.com/dyluth/shop/internal/catalog"
	"github.com/dyluth/shop/internal/config"
	"github.com/dyluth/shop/internal/logging"
	"github.com/dyluth/shop/internal/orders"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/internal/state"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is everything a command needs, wired from the resolved configuration.
type app struct {
	cfg    *config.ShopConfig
	logger zerolog.Logger
	store  state.Store
	client *storefront.Client
	gate   *session.Gate
	cart   *cartcache.Cache
	cat    *catalog.Catalog
	orders *orders.Service
}

type invalidatorFunc func()

func (f invalidatorFunc) Invalidate() { f() }

// newApp resolves configuration and opens local state. Callers must Close it.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or the SHOP_* environment variables", configPath)},
		)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if profileName != "" {
		cfg.State.Profile = profileName
	}
	if ephemeral {
		cfg.State.Backend = state.BackendMemory
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, nil)
	if err != nil {
		return nil, printer.Error("invalid log settings", err.Error(), []string{"Valid levels: debug, info, warn, error, disabled"})
	}

	store, err := state.Open(ctx, state.Options{
		Backend:  cfg.State.Backend,
		Path:     cfg.State.Path,
		RedisURL: cfg.State.RedisURL,
		Profile:  cfg.State.Profile,
	})
	if err != nil {
		return nil, printer.ErrorWithContext(
			"could not open local state",
			err.Error(),
			map[string]string{"Backend": cfg.State.Backend, "Path": cfg.State.Path},
			[]string{"Run with --ephemeral to skip local state", "Check state.path / state.redis_url in shop.yml"},
		)
	}

	a := &app{cfg: cfg, logger: logger, store: store}

	jar, err := session.NewJar(ctx, store, cfg.API.BaseURL, logging.Component(logger, "session"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to set up session cookies: %w", err)
	}

	a.client, err = storefront.NewClient(cfg.API.BaseURL,
		storefront.WithCookieJar(jar),
		storefront.WithTimeout(cfg.API.Timeout),
		storefront.WithLogger(logging.Component(logger, "storefront")),
		storefront.WithUnauthenticatedHook(func() { a.gate.MarkUnauthenticated() }),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create storefront client: %w", err)
	}

	cartLogger := logging.Component(logger, "cart")
	a.cart = cartcache.New(a.client,
		cartcache.WithLogger(cartLogger),
		cartcache.WithListener(logMutation(cartLogger)),
	)
	a.gate = session.NewGate(a.client,
		session.WithLogger(logging.Component(logger, "session")),
		session.WithStore(store),
		session.WithInvalidates(a.cart, invalidatorFunc(func() { a.orders.Invalidate() })),
	)
	a.orders = orders.New(a.client, a.gate, logging.Component(logger, "orders"))
	a.cat = catalog.New(a.client,
		catalog.WithStore(store, cfg.Catalog.TTL),
		catalog.WithPrefetch(cfg.Catalog.Prefetch),
		catalog.WithLogger(logging.Component(logger, "catalog")),
	)
	return a, nil
}

// logMutation records each settled cart change; rollbacks at warn.
func logMutation(logger zerolog.Logger) cartcache.Listener {
	return func(m cartcache.Mutation) {
		if !m.Settled() {
			return
		}
		event := logger.Info()
		if m.Phase == cartcache.PhaseRolledBack {
			event = logger.Warn().Err(m.Err)
		}
		event.
			Str("requested", string(m.Requested)).
			Str("sent", string(m.Kind)).
			Int("item_id", m.ItemID).
			Int("before", m.Before.Quantity).
			Int("after", m.After.Quantity).
			Str("phase", m.Phase.String()).
			Msg("cart mutation settled")
	}
}

// bootstrap fetches the CSRF token ahead of mutating calls. A failure is
// logged only; the csrftoken cookie is the fallback.
func (a *app) bootstrap(cmd *cobra.Command) {
	if err := a.client.Bootstrap(cmd.Context()); err != nil {
		a.logger.Debug().Err(err).Msg("csrf bootstrap failed, relying on cookie")
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close state store")
	}
}
