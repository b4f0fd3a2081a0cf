package orders

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/internal/testutil"
	"github.com/dyluth/shop/internal/timespec"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyPath = "/api/orders/history/"

func setup(t *testing.T) (*testutil.Backend, *session.Gate, *storefront.Client) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddUser("ana", "secret")
	client := backend.NewClient()
	gate := session.NewGate(client)
	return backend, gate, client
}

func TestHistory_AnonymousFetchesNothing(t *testing.T) {
	backend, gate, client := setup(t)
	svc := New(client, gate, zerolog.Nop())

	_, err := svc.History(context.Background())
	require.Error(t, err)
	assert.True(t, session.IsRedirect(err))
	assert.Equal(t, 0, backend.Calls(http.MethodGet, historyPath))
}

func TestHistory_CachesUntilInvalidated(t *testing.T) {
	backend, gate, client := setup(t)
	svc := New(client, gate, zerolog.Nop())
	ctx := context.Background()
	_, err := gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)

	orders, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	require.NoError(t, client.AddToCart(ctx, 3, 2))
	cs, err := client.CreateCheckoutSession(ctx)
	require.NoError(t, err)
	_, err = client.ConfirmPayment(ctx, cs.SessionID)
	require.NoError(t, err)

	orders, err = svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "served from cache")
	assert.Equal(t, 1, backend.Calls(http.MethodGet, historyPath))

	svc.Invalidate()
	orders, err = svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, storefront.PaymentPaid, orders[0].PaymentStatus)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(24)))
}

func TestHistory_GateInvalidatesOnLogout(t *testing.T) {
	backend, _, client := setup(t)
	var svc *Service
	gate := session.NewGate(client, session.WithInvalidates(invalidatorFunc(func() { svc.Invalidate() })))
	svc = New(client, gate, zerolog.Nop())
	ctx := context.Background()

	_, err := gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)
	_, err = svc.History(ctx)
	require.NoError(t, err)

	require.NoError(t, gate.Logout(ctx))
	_, err = svc.History(ctx)
	assert.True(t, session.IsRedirect(err))
	assert.Equal(t, 1, backend.Calls(http.MethodGet, historyPath))
}

type invalidatorFunc func()

func (f invalidatorFunc) Invalidate() { f() }

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("", "", " PAID ")
	require.NoError(t, err)
	assert.Equal(t, storefront.PaymentPaid, f.Status)

	_, err = ParseFilter("", "", "shipped")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --status")

	_, err = ParseFilter("soon", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")
}

func TestFilter_Apply(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	orders := []storefront.Order{
		{Number: "ORD-3", PaymentStatus: storefront.PaymentPaid, CreatedAt: base.Add(48 * time.Hour)},
		{Number: "ORD-2", PaymentStatus: storefront.PaymentRefunded, CreatedAt: base.Add(24 * time.Hour)},
		{Number: "ORD-1", PaymentStatus: storefront.PaymentPaid, CreatedAt: base},
	}

	numbers := func(in []storefront.Order) []string {
		out := []string{}
		for _, o := range in {
			out = append(out, o.Number)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter", filter: Filter{}, want: []string{"ORD-3", "ORD-2", "ORD-1"}},
		{name: "status", filter: Filter{Status: storefront.PaymentPaid}, want: []string{"ORD-3", "ORD-1"}},
		{name: "since", filter: Filter{Range: timespec.Range{Since: base.Add(time.Hour)}}, want: []string{"ORD-3", "ORD-2"}},
		{name: "until inclusive", filter: Filter{Range: timespec.Range{Until: base.Add(24 * time.Hour)}}, want: []string{"ORD-2", "ORD-1"}},
		{name: "status and window", filter: Filter{Status: storefront.PaymentPaid, Range: timespec.Range{Since: base.Add(time.Hour)}}, want: []string{"ORD-3"}},
		{name: "nothing matches", filter: Filter{Status: storefront.PaymentFailed}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numbers(tt.filter.Apply(orders)))
		})
	}
}
