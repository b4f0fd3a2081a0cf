package checkout

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/dyluth/shop/internal/cartcache"
	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/internal/testutil"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (r *recordingOpener) Open(ctx context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	return r.err
}

func (r *recordingOpener) opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

type fixture struct {
	backend *testutil.Backend
	client  *storefront.Client
	gate    *session.Gate
	cart    *cartcache.Cache
	orders  *countingInvalidator
	opener  *recordingOpener
	orch    *Orchestrator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: testutil.NewBackend(t), orders: &countingInvalidator{}, opener: &recordingOpener{}}
	f.backend.AddUser("ana", "secret")
	f.client = f.backend.NewClient(storefront.WithUnauthenticatedHook(func() { f.gate.MarkUnauthenticated() }))
	f.cart = cartcache.New(f.client)
	f.gate = session.NewGate(f.client, session.WithInvalidates(f.cart))

	orch, err := New(Config{
		Remote:      f.client,
		Gate:        f.gate,
		Cart:        f.cart,
		Opener:      f.opener,
		Invalidates: []Invalidator{f.cart, f.orders},
	})
	require.NoError(t, err)
	f.orch = orch
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.gate.Login(context.Background(), storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote is required")
}

func TestBegin_Anonymous(t *testing.T) {
	f := setup(t)

	_, err := f.orch.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, storefront.IsUnauthenticated(err))
	assert.Empty(t, f.opener.opened())
	assert.Equal(t, 0, f.backend.Calls(http.MethodPost, "/api/payments/checkout/create-session/"))
}

func TestBegin_EmptyCartFromServer(t *testing.T) {
	f := setup(t)
	f.login(t)

	_, err := f.orch.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, storefront.IsEmptyResource(err))
	assert.Empty(t, f.opener.opened(), "browser must not be redirected")
}

func TestBegin_EmptyCartFromCache(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	cart, err := f.cart.Current(ctx)
	require.NoError(t, err)
	require.True(t, cart.IsEmpty())

	_, err = f.orch.Begin(ctx)
	require.Error(t, err)
	assert.True(t, storefront.IsEmptyResource(err))
	assert.Equal(t, 0, f.backend.Calls(http.MethodPost, "/api/payments/checkout/create-session/"))
	assert.Empty(t, f.opener.opened())
}

func TestBegin_OpensBackendURL(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 2))

	redirect, err := f.orch.Begin(ctx)
	require.NoError(t, err)
	assert.False(t, redirect.Degraded)
	assert.Equal(t, []string{redirect.URL}, f.opener.opened())
	assert.Contains(t, redirect.URL, f.backend.Server.URL)
}

func TestBegin_FallbackURLIsDegraded(t *testing.T) {
	f := setup(t)
	f.backend.OmitCheckoutURL = true
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 1))

	redirect, err := f.orch.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, redirect.Degraded)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/"+redirect.SessionID, redirect.URL)
	assert.Equal(t, []string{redirect.URL}, f.opener.opened())
}

func TestBegin_OpenerFailureKeepsRedirect(t *testing.T) {
	f := setup(t)
	f.opener.err = errors.New("no display")
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 1))

	redirect, err := f.orch.Begin(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open checkout page")
	assert.NotEmpty(t, redirect.URL, "caller can still show the URL")
}

func TestConfirm_SuccessClearsCartAndOrders(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 2))

	redirect, err := f.orch.Begin(ctx)
	require.NoError(t, err)
	_, err = f.cart.Current(ctx)
	require.NoError(t, err)

	result := f.orch.Confirm(ctx, "http://127.0.0.1:8765/payment/success?session_id="+redirect.SessionID)
	require.Equal(t, ResultSuccess, result.State, "err: %v", result.Err)
	require.NotNil(t, result.Order)
	assert.Equal(t, storefront.PaymentPaid, result.Order.PaymentStatus)
	assert.Equal(t, 1, f.orders.n)

	_, fresh := f.cart.Peek()
	assert.False(t, fresh)
	cart, err := f.cart.Current(ctx)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestConfirm_ErrorStates(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 1))
	redirect, err := f.orch.Begin(ctx)
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, f.orch.ConfirmSession(ctx, redirect.SessionID).State)

	tests := []struct {
		name      string
		returnURL string
		wantErr   string
	}{
		{name: "missing token", returnURL: "http://127.0.0.1:8765/payment/success", wantErr: "missing session token"},
		{name: "blank token", returnURL: "http://127.0.0.1:8765/payment/success?session_id=%20", wantErr: "missing session token"},
		{name: "unknown session", returnURL: "http://x/payment/success?session_id=cs_test_nope", wantErr: "Sesión de pago inválida"},
		{name: "already confirmed", returnURL: "http://x/payment/success?session_id=" + redirect.SessionID, wantErr: "ya fue procesado"},
		{name: "unparseable", returnURL: "http://[::1", wantErr: "missing session token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.orch.Confirm(ctx, tt.returnURL)
			assert.Equal(t, ResultError, result.State)
			assert.Equal(t, CartRoute, result.BackTo)
			require.Error(t, result.Err)
			assert.True(t, storefront.IsConfirmation(result.Err))
			assert.Contains(t, result.Err.Error(), tt.wantErr)
		})
	}
}

func TestConfirm_NetworkErrorIsErrorState(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.backend.FailNext(http.MethodPost, "/payments/checkout/confirm/", http.StatusBadGateway)

	result := f.orch.ConfirmSession(context.Background(), "cs_test_any")
	assert.Equal(t, ResultError, result.State)
	assert.Equal(t, CartRoute, result.BackTo)
	assert.Equal(t, 0, f.orders.n)
}

type pendingRemote struct{}

func (pendingRemote) CreateCheckoutSession(ctx context.Context) (*storefront.CheckoutSession, error) {
	return &storefront.CheckoutSession{SessionID: "cs_1"}, nil
}

func (pendingRemote) ConfirmPayment(ctx context.Context, sessionID string) (*storefront.Order, error) {
	return &storefront.Order{Number: "ORD-00000009", PaymentStatus: storefront.PaymentPending}, nil
}

type allowGate struct{}

func (allowGate) Require(ctx context.Context) (storefront.Profile, error) {
	return storefront.Profile{Username: "ana"}, nil
}

func TestConfirm_UnpaidOrderIsNeverSuccess(t *testing.T) {
	inv := &countingInvalidator{}
	orch, err := New(Config{Remote: pendingRemote{}, Gate: allowGate{}, Opener: PrintOpener{W: &bytes.Buffer{}}, Invalidates: []Invalidator{inv}})
	require.NoError(t, err)

	result := orch.ConfirmSession(context.Background(), "cs_1")
	assert.Equal(t, ResultError, result.State)
	assert.True(t, storefront.IsConfirmation(result.Err))
	assert.Contains(t, result.Err.Error(), "payment is pending")
	assert.Equal(t, 0, inv.n)
}

func TestPrintOpener(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintOpener{W: &buf}.Open(context.Background(), "https://pay.example/cs_1"))
	assert.True(t, strings.HasPrefix(buf.String(), "Open this URL to pay: https://pay.example/cs_1"))
}

func TestSessionIDFromURL(t *testing.T) {
	id, err := SessionIDFromURL("http://localhost:5173/payment/success?session_id=cs_test_abc&x=1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", id)

	_, err = SessionIDFromURL("http://localhost:5173/payment/success")
	assert.True(t, storefront.IsConfirmation(err))
}

func TestResultStateString(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "error", ResultError.String())
	assert.Equal(t, "cancelled", ResultCancelled.String())
	assert.Equal(t, CartRoute, Cancelled().BackTo)
}
