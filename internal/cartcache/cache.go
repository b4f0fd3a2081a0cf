// Package cartcache holds the client-side projection of the server cart.
//
// Mutations are applied optimistically: the projection changes immediately,
// the server call follows, and a rejected call restores the item exactly as
// it was. Every settled mutation invalidates the cache so the next Current
// reads the server's own numbers. Mutations on the same item run one at a
// time; a mutation that arrives while another is in flight waits for it to
// settle before taking its own snapshot.
//
// Only this package writes the cart projection. Everything else reads it
// through Current or Peek.
package cartcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyluth/shop/internal/query"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
)

// Remote is the subset of the storefront client the cache needs.
type Remote interface {
	GetCart(ctx context.Context) (storefront.Cart, error)
	AddToCart(ctx context.Context, productID, quantity int) error
	UpdateCartItem(ctx context.Context, itemID, quantity int) (*storefront.CartItemUpdate, error)
	RemoveCartItem(ctx context.Context, itemID int) error
}

// Listener is notified of every settled mutation.
type Listener func(Mutation)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithListener registers fn for settled mutations. Multiple listeners are called in order.
func WithListener(fn Listener) Option {
	return func(c *Cache) { c.listeners = append(c.listeners, fn) }
}

// Cache is the optimistic cart projection.
type Cache struct {
	remote    Remote
	logger    zerolog.Logger
	listeners []Listener
	cart      *query.Query[storefront.Cart]

	mu      sync.Mutex
	locks   map[int]chan struct{}
	pending map[int]Mutation
}

// New returns an empty cache over remote.
func New(remote Remote, opts ...Option) *Cache {
	c := &Cache{
		remote:  remote,
		logger:  zerolog.Nop(),
		locks:   map[int]chan struct{}{},
		pending: map[int]Mutation{},
	}
	c.cart = query.New(remote.GetCart)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the cart, refetching from the server when stale.
func (c *Cache) Current(ctx context.Context) (storefront.Cart, error) {
	cart, err := c.cart.Get(ctx)
	if err != nil {
		return storefront.Cart{}, err
	}
	return cart.Clone(), nil
}

// Peek returns the cached projection without any network call.
// fresh is false when nothing is cached or the next Current will refetch.
func (c *Cache) Peek() (cart storefront.Cart, fresh bool) {
	v, ok := c.cart.Peek()
	if !ok {
		return storefront.Cart{}, false
	}
	return v.Clone(), !c.cart.Stale()
}

// Invalidate marks the projection stale and drops any in-flight refetch.
func (c *Cache) Invalidate() {
	c.cart.Invalidate()
}

// Reset forgets the projection, e.g. when the session changes owner.
func (c *Cache) Reset() {
	c.cart.Reset()
}

// Pending returns the mutations currently in flight, keyed by item id.
func (c *Cache) Pending() map[int]Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]Mutation, len(c.pending))
	for id, m := range c.pending {
		out[id] = m
	}
	return out
}

// Increment adds one unit to the item.
func (c *Cache) Increment(ctx context.Context, itemID int) (Mutation, error) {
	return c.mutate(ctx, KindIncrement, itemID)
}

// Decrement removes one unit. At quantity 1 the item is removed instead.
func (c *Cache) Decrement(ctx context.Context, itemID int) (Mutation, error) {
	return c.mutate(ctx, KindDecrement, itemID)
}

// Remove deletes the item.
func (c *Cache) Remove(ctx context.Context, itemID int) (Mutation, error) {
	return c.mutate(ctx, KindRemove, itemID)
}

// Add puts quantity units of a product in the cart. The server assigns the
// item id, so nothing is projected; the cache is invalidated once it settles.
func (c *Cache) Add(ctx context.Context, productID, quantity int) error {
	defer c.cart.Invalidate()
	if err := c.remote.AddToCart(ctx, productID, quantity); err != nil {
		c.logger.Warn().Int("product_id", productID).Int("quantity", quantity).Err(err).Msg("add to cart failed")
		return fmt.Errorf("failed to add product %d: %w", productID, err)
	}
	c.logger.Debug().Int("product_id", productID).Int("quantity", quantity).Msg("added to cart")
	return nil
}

func (c *Cache) mutate(ctx context.Context, kind Kind, itemID int) (Mutation, error) {
	unlock, err := c.lockItem(ctx, itemID)
	if err != nil {
		return Mutation{}, err
	}
	defer unlock()

	if err := c.ensureItem(ctx, itemID); err != nil {
		return Mutation{}, err
	}

	m, ok := c.apply(kind, itemID)
	if !ok {
		return Mutation{}, &ItemNotFoundError{ItemID: itemID}
	}
	c.setPending(m)

	update, err := c.send(ctx, m)
	if err != nil {
		m = c.rollback(m, err)
	} else {
		m = c.commit(m, update)
	}

	c.cart.Invalidate()
	c.clearPending(itemID)
	c.notify(m)

	if m.Phase == PhaseRolledBack {
		return m, &MutationError{Mutation: m, Err: err}
	}
	return m, nil
}

// ensureItem makes sure the projection holds itemID, fetching once if needed.
func (c *Cache) ensureItem(ctx context.Context, itemID int) error {
	if cart, ok := c.cart.Peek(); ok && cart.Find(itemID) >= 0 {
		return nil
	}
	c.cart.Invalidate()
	cart, err := c.cart.Get(ctx)
	if err != nil {
		return err
	}
	if cart.Find(itemID) < 0 {
		return &ItemNotFoundError{ItemID: itemID}
	}
	return nil
}

// apply snapshots the cart and writes the optimistic projection in one step.
func (c *Cache) apply(kind Kind, itemID int) (Mutation, bool) {
	m := Mutation{Requested: kind, Kind: kind, ItemID: itemID, Phase: PhaseIdle}

	changed := c.cart.Update(func(cart storefront.Cart, ok bool) (storefront.Cart, bool) {
		if !ok {
			return cart, false
		}
		idx := cart.Find(itemID)
		if idx < 0 {
			return cart, false
		}

		m.Snapshot = cart.Clone()
		m.Before = m.Snapshot.Items[idx]
		m.Index = idx

		next := cart.Clone()
		item := next.Items[idx]
		switch {
		case kind == KindIncrement:
			item.Quantity++
		case kind == KindDecrement && item.Quantity > 1:
			item.Quantity--
		default:
			m.Kind = KindRemove
			next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
			return next, true
		}
		item.Recompute()
		next.Items[idx] = item
		m.After = item
		return next, true
	})
	if !changed {
		return m, false
	}

	m.Phase = PhaseApplying
	c.logger.Debug().Str("kind", string(m.Kind)).Int("item_id", itemID).Msg("optimistic update applied")
	return m, true
}

func (c *Cache) send(ctx context.Context, m Mutation) (*storefront.CartItemUpdate, error) {
	if m.Kind == KindRemove {
		return nil, c.remote.RemoveCartItem(ctx, m.ItemID)
	}
	return c.remote.UpdateCartItem(ctx, m.ItemID, m.After.Quantity)
}

// commit folds the server's subtotal into the projection.
func (c *Cache) commit(m Mutation, update *storefront.CartItemUpdate) Mutation {
	m.Phase = PhaseCommitted
	if update != nil {
		c.cart.Update(func(cart storefront.Cart, ok bool) (storefront.Cart, bool) {
			idx := cart.Find(m.ItemID)
			if !ok || idx < 0 {
				return cart, false
			}
			next := cart.Clone()
			next.Items[idx].Quantity = update.Quantity
			next.Items[idx].Subtotal = update.Subtotal
			m.After = next.Items[idx]
			return next, true
		})
	}
	c.logger.Debug().Str("kind", string(m.Kind)).Int("item_id", m.ItemID).Msg("mutation committed")
	return m
}

// rollback restores the item exactly as it was in the snapshot. Only this
// item's slot is touched so concurrent mutations of other items survive.
func (c *Cache) rollback(m Mutation, err error) Mutation {
	m.Phase = PhaseRolledBack
	m.Err = err
	c.cart.Update(func(cart storefront.Cart, ok bool) (storefront.Cart, bool) {
		if !ok {
			return cart, false
		}
		next := cart.Clone()
		before := m.Snapshot.Items[m.Index]
		if idx := next.Find(m.ItemID); idx >= 0 {
			next.Items[idx] = before
			return next, true
		}
		pos := m.Index
		if pos > len(next.Items) {
			pos = len(next.Items)
		}
		next.Items = append(next.Items[:pos], append([]storefront.CartItem{before}, next.Items[pos:]...)...)
		return next, true
	})
	c.logger.Warn().Str("kind", string(m.Kind)).Int("item_id", m.ItemID).Err(err).Msg("mutation rolled back")
	return m
}

func (c *Cache) lockItem(ctx context.Context, itemID int) (func(), error) {
	c.mu.Lock()
	ch, ok := c.locks[itemID]
	if !ok {
		ch = make(chan struct{}, 1)
		c.locks[itemID] = ch
	}
	c.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) setPending(m Mutation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[m.ItemID] = m
}

func (c *Cache) clearPending(itemID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, itemID)
}

func (c *Cache) notify(m Mutation) {
	for _, fn := range c.listeners {
		fn(m)
	}
}
