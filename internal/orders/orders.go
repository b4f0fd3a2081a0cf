// Package orders is the signed-in user's order history read model.
package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/shop/internal/query"
	"github.com/dyluth/shop/internal/timespec"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
)

// Remote is the subset of the storefront client used here.
type Remote interface {
	OrderHistory(ctx context.Context) ([]storefront.Order, error)
}

// Gate guards the history behind an authenticated session.
type Gate interface {
	Require(ctx context.Context) (storefront.Profile, error)
}

// Service serves the cached order history.
type Service struct {
	gate   Gate
	logger zerolog.Logger
	q      *query.Query[[]storefront.Order]
}

// New returns a Service. logger may be zero-valued.
func New(remote Remote, gate Gate, logger zerolog.Logger) *Service {
	s := &Service{gate: gate, logger: logger}
	s.q = query.New(func(ctx context.Context) ([]storefront.Order, error) {
		orders, err := remote.OrderHistory(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.Debug().Int("count", len(orders)).Msg("order history fetched")
		return orders, nil
	})
	return s
}

// History returns the user's orders, newest first as the server sends them.
// An anonymous session gets the gate's redirect and nothing is fetched.
func (s *Service) History(ctx context.Context) ([]storefront.Order, error) {
	if _, err := s.gate.Require(ctx); err != nil {
		return nil, err
	}
	return s.q.Get(ctx)
}

// Invalidate forces the next History call to refetch.
func (s *Service) Invalidate() {
	s.q.Invalidate()
}

// Filter narrows an order listing. All criteria are ANDed together.
type Filter struct {
	Range  timespec.Range           // On creation time, zero bounds = open
	Status storefront.PaymentStatus // Empty = any status
}

// ParseFilter builds a Filter from --since, --until and --status flag values.
func ParseFilter(since, until, status string) (Filter, error) {
	r, err := timespec.ParseRange(since, until)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Range: r}
	if status = strings.TrimSpace(strings.ToLower(status)); status != "" {
		f.Status = storefront.PaymentStatus(status)
		if err := f.Status.Validate(); err != nil {
			return Filter{}, fmt.Errorf("invalid --status: %w", err)
		}
	}
	return f, nil
}

// Apply returns the orders that match f, keeping their order.
func (f Filter) Apply(orders []storefront.Order) []storefront.Order {
	out := make([]storefront.Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.PaymentStatus != f.Status {
			continue
		}
		if !f.Range.Contains(o.CreatedAt) {
			continue
		}
		out = append(out, o)
	}
	return out
}
