// Package catalog is the read-only product and category projection.
//
// Reads go through two layers: an in-process query per resource and, when a
// state.Store is configured, a persisted copy with a TTL so consecutive CLI
// runs do not hit the backend. Catalog data is never mutated by the client,
// so entries only go stale by TTL or an explicit Refresh.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/shop/internal/query"
	"github.com/dyluth/shop/internal/state"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefetch bounds concurrent detail fetches in Prefetch.
const DefaultPrefetch = 4

// Remote is the subset of the storefront client the catalog reads from.
type Remote interface {
	ListProducts(ctx context.Context) ([]storefront.Product, error)
	GetProduct(ctx context.Context, id int) (*storefront.Product, error)
	ListCategories(ctx context.Context) ([]storefront.Category, error)
	ListProductsByCategory(ctx context.Context, categoryID int) ([]storefront.Product, error)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStore persists catalog reads in store for ttl.
func WithStore(store state.Store, ttl time.Duration) Option {
	return func(c *Catalog) {
		c.store = store
		c.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// WithPrefetch sets the concurrency limit used by Prefetch.
func WithPrefetch(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.prefetch = n
		}
	}
}

// Catalog serves products and categories.
type Catalog struct {
	remote   Remote
	store    state.Store
	ttl      time.Duration
	prefetch int
	logger   zerolog.Logger

	products   *query.Query[[]storefront.Product]
	categories *query.Query[[]storefront.Category]

	mu         sync.Mutex
	details    map[int]*query.Query[storefront.Product]
	byCategory map[int]*query.Query[[]storefront.Product]
}

// New returns a Catalog reading from remote.
func New(remote Remote, opts ...Option) *Catalog {
	c := &Catalog{
		remote:     remote,
		prefetch:   DefaultPrefetch,
		logger:     zerolog.Nop(),
		details:    map[int]*query.Query[storefront.Product]{},
		byCategory: map[int]*query.Query[[]storefront.Product]{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.products = query.New(func(ctx context.Context) ([]storefront.Product, error) {
		return readThrough(ctx, c, state.ProductsKey, c.remote.ListProducts)
	})
	c.categories = query.New(func(ctx context.Context) ([]storefront.Category, error) {
		return readThrough(ctx, c, state.CategoriesKey, c.remote.ListCategories)
	})
	return c
}

// Products returns the full product list.
func (c *Catalog) Products(ctx context.Context) ([]storefront.Product, error) {
	return c.products.Get(ctx)
}

// Product returns one product by id.
func (c *Catalog) Product(ctx context.Context, id int) (storefront.Product, error) {
	if id <= 0 {
		return storefront.Product{}, &storefront.ValidationError{Message: fmt.Sprintf("invalid product id %d", id)}
	}
	return c.detail(id).Get(ctx)
}

// Categories returns every category.
func (c *Catalog) Categories(ctx context.Context) ([]storefront.Category, error) {
	return c.categories.Get(ctx)
}

// ByCategory returns the products in one category.
func (c *Catalog) ByCategory(ctx context.Context, categoryID int) ([]storefront.Product, error) {
	if categoryID <= 0 {
		return nil, &storefront.ValidationError{Message: fmt.Sprintf("invalid category id %d", categoryID)}
	}
	c.mu.Lock()
	q, ok := c.byCategory[categoryID]
	if !ok {
		q = query.New(func(ctx context.Context) ([]storefront.Product, error) {
			return readThrough(ctx, c, state.CategoryKey(categoryID), func(ctx context.Context) ([]storefront.Product, error) {
				return c.remote.ListProductsByCategory(ctx, categoryID)
			})
		})
		c.byCategory[categoryID] = q
	}
	c.mu.Unlock()
	return q.Get(ctx)
}

// Prefetch warms the detail entries for ids with at most the configured
// number of requests in flight. Failures are logged and skipped; the number
// of products actually warmed is returned.
func (c *Catalog) Prefetch(ctx context.Context, ids ...int) int {
	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.prefetch)

	for _, id := range ids {
		g.Go(func() error {
			if _, err := c.Product(gctx, id); err != nil {
				c.logger.Debug().Int("product_id", id).Err(err).Msg("prefetch failed")
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(warmed.Load())
}

// Refresh drops every cached catalog entry, in-process and persisted,
// including entries written by earlier runs.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	for _, q := range c.details {
		q.Reset()
	}
	for _, q := range c.byCategory {
		q.Reset()
	}
	c.mu.Unlock()
	c.products.Reset()
	c.categories.Reset()

	if c.store == nil {
		return nil
	}
	if err := c.store.DeletePrefix(ctx, state.CatalogPrefix); err != nil {
		return fmt.Errorf("failed to clear stored catalog: %w", err)
	}
	return nil
}

func (c *Catalog) detail(id int) *query.Query[storefront.Product] {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.details[id]
	if !ok {
		q = query.New(func(ctx context.Context) (storefront.Product, error) {
			return readThrough(ctx, c, state.ProductKey(id), func(ctx context.Context) (storefront.Product, error) {
				p, err := c.remote.GetProduct(ctx, id)
				if err != nil {
					return storefront.Product{}, err
				}
				return *p, nil
			})
		})
		c.details[id] = q
	}
	return q
}

// readThrough serves key from the store when present and otherwise fetches
// and stores it. Store failures degrade to a plain remote read.
func readThrough[T any](ctx context.Context, c *Catalog, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c.store != nil {
		var cached T
		err := state.GetJSON(ctx, c.store, key, &cached)
		switch {
		case err == nil:
			c.logger.Debug().Str("key", key).Msg("catalog cache hit")
			return cached, nil
		case ctx.Err() != nil:
			var zero T
			return zero, ctx.Err()
		case !state.IsNotFound(err):
			c.logger.Warn().Str("key", key).Err(err).Msg("catalog cache read failed")
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if c.store != nil {
		if err := state.SetJSON(ctx, c.store, key, v, c.ttl); err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("catalog cache write failed")
		}
	}
	return v, nil
}
