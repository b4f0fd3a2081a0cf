package session

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/dyluth/shop/internal/state"
	"github.com/dyluth/shop/internal/testutil"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ n int32 }

func (c *countingInvalidator) Invalidate() { atomic.AddInt32(&c.n, 1) }
func (c *countingInvalidator) count() int  { return int(atomic.LoadInt32(&c.n)) }

func setupGate(t *testing.T) (*Gate, *testutil.Backend, *state.MemoryStore, *countingInvalidator) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddUser("ana", "secret")
	store := state.NewMemoryStore()
	cart := &countingInvalidator{}

	var gate *Gate
	client := backend.NewClient(storefront.WithUnauthenticatedHook(func() { gate.MarkUnauthenticated() }))
	gate = NewGate(client, WithStore(store), WithInvalidates(cart))
	return gate, backend, store, cart
}

func TestGate_StartsUnknownAndResolvesAnonymous(t *testing.T) {
	gate, backend, _, _ := setupGate(t)
	ctx := context.Background()

	assert.Equal(t, StateUnknown, gate.Peek().State)

	st, err := gate.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, st.State)

	_, err = gate.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Calls(http.MethodGet, "/api/auth/check/"), "status is cached until invalidated")
}

func TestGate_LoginLogoutLifecycle(t *testing.T) {
	gate, backend, store, cart := setupGate(t)
	ctx := context.Background()

	profile, err := gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)
	assert.Equal(t, 1, cart.count(), "login migrates the guest cart")

	st, err := gate.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Authenticated())
	assert.Equal(t, 0, backend.Calls(http.MethodGet, "/api/auth/check/"))

	hint, ok, err := LoadHint(ctx, store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-ana", hint.Token)
	assert.Equal(t, "ana", hint.User.Username)

	require.NoError(t, gate.Logout(ctx))
	assert.Equal(t, StateAnonymous, gate.Peek().State)
	assert.Equal(t, 2, cart.count(), "logout invalidates the cart")
	_, ok, err = LoadHint(ctx, store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_BadCredentials(t *testing.T) {
	gate, _, _, cart := setupGate(t)

	_, err := gate.Login(context.Background(), storefront.LoginRequest{Username: "ana", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, storefront.IsValidation(err))
	assert.Equal(t, 0, cart.count())
	assert.Equal(t, StateUnknown, gate.Peek().State)
}

func TestGate_RegisterAuthenticates(t *testing.T) {
	gate, _, _, cart := setupGate(t)

	profile, err := gate.Register(context.Background(), storefront.RegisterRequest{
		Username: "luis", Email: "luis@example.com", Password: "pw", Password2: "pw", FirstName: "Luis",
	})
	require.NoError(t, err)
	assert.Equal(t, "Luis", profile.DisplayName())
	assert.True(t, gate.Peek().Authenticated())
	assert.Equal(t, 1, cart.count())
}

func TestGate_RequireRedirectsWithoutFetching(t *testing.T) {
	gate, backend, _, _ := setupGate(t)
	ctx := context.Background()

	_, err := gate.Require(ctx)
	require.Error(t, err)
	assert.True(t, IsRedirect(err))
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, LoginRoute, redirect.To)

	_, err = gate.Profile(ctx)
	assert.True(t, IsRedirect(err))
	assert.Equal(t, 0, backend.Calls(http.MethodGet, "/api/auth/profile/"), "no protected data may be fetched")
}

func TestGate_Entry(t *testing.T) {
	gate, _, _, _ := setupGate(t)
	ctx := context.Background()

	entry, err := gate.Entry(ctx)
	require.NoError(t, err)
	assert.Equal(t, EntryForm, entry)

	_, err = gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)
	entry, err = gate.Entry(ctx)
	require.NoError(t, err)
	assert.Equal(t, EntryRedirecting, entry)
}

func TestGate_ProtectedUnauthorizedDropsToAnonymous(t *testing.T) {
	gate, backend, store, _ := setupGate(t)
	ctx := context.Background()

	_, err := gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)

	backend.FailNext(http.MethodGet, "/auth/profile/", http.StatusUnauthorized)
	_, err = gate.Profile(ctx)
	require.Error(t, err)
	assert.True(t, storefront.IsUnauthenticated(err))

	assert.Equal(t, StateAnonymous, gate.Peek().State)
	_, ok, err := LoadHint(ctx, store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_UpdateProfileRefreshesHint(t *testing.T) {
	gate, _, _, _ := setupGate(t)
	ctx := context.Background()

	_, err := gate.Login(ctx, storefront.LoginRequest{Username: "ana", Password: "secret"})
	require.NoError(t, err)

	profile, err := gate.UpdateProfile(ctx, storefront.ProfileUpdate{Address: "Av. Larco 123", City: "Lima"})
	require.NoError(t, err)
	assert.Equal(t, "Lima", profile.City)
	assert.Equal(t, "Lima", gate.Peek().User.City)

	hint, ok, err := gate.CachedHint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Av. Larco 123", hint.User.Address)
	assert.Equal(t, "tok-ana", hint.Token)
}

// failingRemote fails every auth check.
type failingRemote struct {
	Remote
	checks int32
}

func (f *failingRemote) CheckAuth(ctx context.Context) (*storefront.AuthStatus, error) {
	atomic.AddInt32(&f.checks, 1)
	return nil, &storefront.NetworkError{Op: "check auth", Err: errors.New("connection refused")}
}

func TestGate_FailedCheckIsAnonymousAndNotRetried(t *testing.T) {
	remote := &failingRemote{}
	gate := NewGate(remote)
	ctx := context.Background()

	st, err := gate.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, st.State)

	_, err = gate.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.checks))

	_, err = gate.Require(ctx)
	assert.True(t, IsRedirect(err))
}

func TestGate_LogoutAlreadyGoneIsFine(t *testing.T) {
	gate, _, _, cart := setupGate(t)
	require.NoError(t, gate.Logout(context.Background()))
	assert.Equal(t, StateAnonymous, gate.Peek().State)
	assert.Equal(t, 1, cart.count())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
}
