// Package session derives the authentication state from the server and gates
// protected views on it.
//
// State moves Unknown -> Authenticated | Anonymous once the auth check
// resolves. It drops back to Anonymous on logout or when any protected call
// answers 401/403. A failed check is never retried automatically and counts
// as Anonymous.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/shop/internal/query"
	"github.com/dyluth/shop/internal/state"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/rs/zerolog"
)

// State is the resolved authentication state.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Status is the gate's view of the session.
type Status struct {
	State State
	User  *storefront.Profile
}

// Authenticated reports whether the session is logged in.
func (s Status) Authenticated() bool {
	return s.State == StateAuthenticated
}

// EntryState is what the login/register entry point should show.
type EntryState int

const (
	// EntryForm shows the credentials form.
	EntryForm EntryState = iota
	// EntryRedirecting is shown while leaving an entry point the user no longer needs.
	EntryRedirecting
)

// LoginRoute is where protected views send anonymous users.
const LoginRoute = "login"

// RedirectError is returned by Require when the session is anonymous.
type RedirectError struct {
	To string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("authentication required: redirecting to %s", e.To)
}

// IsRedirect returns true if err is or wraps a RedirectError.
func IsRedirect(err error) bool {
	var target *RedirectError
	return errors.As(err, &target)
}

// Remote is the subset of the storefront client the gate needs.
type Remote interface {
	CheckAuth(ctx context.Context) (*storefront.AuthStatus, error)
	Login(ctx context.Context, req storefront.LoginRequest) (*storefront.AuthResult, error)
	Register(ctx context.Context, req storefront.RegisterRequest) (*storefront.AuthResult, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context) (*storefront.Profile, error)
	UpdateProfile(ctx context.Context, update storefront.ProfileUpdate) (*storefront.Profile, error)
}

// Invalidator is any cache that must be dropped when the session owner changes.
type Invalidator interface {
	Invalidate()
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// WithStore persists the auth hint in store.
func WithStore(store state.Store) Option {
	return func(g *Gate) { g.store = store }
}

// WithInvalidates registers caches to invalidate on login, register and logout.
func WithInvalidates(caches ...Invalidator) Option {
	return func(g *Gate) { g.dependents = append(g.dependents, caches...) }
}

// Gate owns the session state.
type Gate struct {
	remote     Remote
	store      state.Store
	logger     zerolog.Logger
	dependents []Invalidator
	status     *query.Query[Status]
}

// NewGate returns a gate in the Unknown state.
func NewGate(remote Remote, opts ...Option) *Gate {
	g := &Gate{remote: remote, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	g.status = query.New(g.check)
	return g
}

func (g *Gate) check(ctx context.Context) (Status, error) {
	resp, err := g.remote.CheckAuth(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Status{}, ctx.Err()
		}
		g.logger.Warn().Err(err).Msg("auth check failed, treating session as anonymous")
		return Status{State: StateAnonymous}, nil
	}
	if !resp.Authenticated || resp.User == nil {
		return Status{State: StateAnonymous}, nil
	}
	user := *resp.User
	return Status{State: StateAuthenticated, User: &user}, nil
}

// Status resolves the session, asking the server at most once until invalidated.
func (g *Gate) Status(ctx context.Context) (Status, error) {
	return g.status.Get(ctx)
}

// Peek returns the last resolved status, or Unknown.
func (g *Gate) Peek() Status {
	st, ok := g.status.Peek()
	if !ok {
		return Status{State: StateUnknown}
	}
	return st
}

// Invalidate forces the next Status to ask the server again.
func (g *Gate) Invalidate() {
	g.status.Invalidate()
}

// Require returns the profile of an authenticated session, or a
// RedirectError to the login entry point. Callers must not fetch protected
// data when it fails.
func (g *Gate) Require(ctx context.Context) (storefront.Profile, error) {
	st, err := g.Status(ctx)
	if err != nil {
		return storefront.Profile{}, err
	}
	if !st.Authenticated() {
		return storefront.Profile{}, &RedirectError{To: LoginRoute}
	}
	return *st.User, nil
}

// Entry decides what the login/register entry point shows.
func (g *Gate) Entry(ctx context.Context) (EntryState, error) {
	st, err := g.Status(ctx)
	if err != nil {
		return EntryForm, err
	}
	if st.Authenticated() {
		return EntryRedirecting, nil
	}
	return EntryForm, nil
}

// Login authenticates and establishes the session. The server migrates the
// guest cart, so dependent caches are invalidated.
func (g *Gate) Login(ctx context.Context, req storefront.LoginRequest) (storefront.Profile, error) {
	result, err := g.remote.Login(ctx, req)
	if err != nil {
		return storefront.Profile{}, err
	}
	g.established(ctx, result)
	g.logger.Info().Str("username", result.User.Username).Msg("logged in")
	return result.User, nil
}

// Register creates an account and logs it in.
func (g *Gate) Register(ctx context.Context, req storefront.RegisterRequest) (storefront.Profile, error) {
	result, err := g.remote.Register(ctx, req)
	if err != nil {
		return storefront.Profile{}, err
	}
	g.established(ctx, result)
	g.logger.Info().Str("username", result.User.Username).Msg("registered")
	return result.User, nil
}

func (g *Gate) established(ctx context.Context, result *storefront.AuthResult) {
	user := result.User
	g.status.Set(Status{State: StateAuthenticated, User: &user})
	if g.store != nil {
		if err := SaveHint(ctx, g.store, Hint{Token: result.Token, User: user}); err != nil {
			g.logger.Warn().Err(err).Msg("failed to save auth hint")
		}
	}
	g.invalidateDependents()
}

// Logout ends the session. A server that already considers the session gone
// is not an error.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.remote.Logout(ctx); err != nil && !storefront.IsUnauthenticated(err) {
		return err
	}
	g.anonymous(ctx)
	g.invalidateDependents()
	g.logger.Info().Msg("logged out")
	return nil
}

// MarkUnauthenticated is the hook for a 401/403 from any protected call.
func (g *Gate) MarkUnauthenticated() {
	g.anonymous(context.Background())
	g.logger.Debug().Msg("session lost, now anonymous")
}

func (g *Gate) anonymous(ctx context.Context) {
	g.status.Set(Status{State: StateAnonymous})
	if g.store != nil {
		if err := ClearHint(ctx, g.store); err != nil {
			g.logger.Warn().Err(err).Msg("failed to clear auth hint")
		}
	}
}

func (g *Gate) invalidateDependents() {
	for _, d := range g.dependents {
		d.Invalidate()
	}
}

// Profile returns the full profile of the authenticated user.
func (g *Gate) Profile(ctx context.Context) (storefront.Profile, error) {
	if _, err := g.Require(ctx); err != nil {
		return storefront.Profile{}, err
	}
	profile, err := g.remote.GetProfile(ctx)
	if err != nil {
		return storefront.Profile{}, err
	}
	return *profile, nil
}

// UpdateProfile changes contact and shipping details.
func (g *Gate) UpdateProfile(ctx context.Context, update storefront.ProfileUpdate) (storefront.Profile, error) {
	if _, err := g.Require(ctx); err != nil {
		return storefront.Profile{}, err
	}
	profile, err := g.remote.UpdateProfile(ctx, update)
	if err != nil {
		return storefront.Profile{}, err
	}
	g.status.Set(Status{State: StateAuthenticated, User: profile})
	if g.store != nil {
		if hint, ok, err := LoadHint(ctx, g.store); err == nil && ok {
			hint.User = *profile
			if err := SaveHint(ctx, g.store, hint); err != nil {
				g.logger.Warn().Err(err).Msg("failed to refresh auth hint")
			}
		}
	}
	return *profile, nil
}

// CachedHint returns the locally saved login, if any, without a network call.
func (g *Gate) CachedHint(ctx context.Context) (Hint, bool, error) {
	if g.store == nil {
		return Hint{}, false, nil
	}
	return LoadHint(ctx, g.store)
}
