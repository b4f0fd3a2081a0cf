package session

import (
	"context"
	"fmt"

	"github.com/dyluth/shop/internal/state"
	"github.com/dyluth/shop/pkg/storefront"
)

// Hint is the locally remembered login: the opaque token and profile returned
// by login or register. It only drives fast UI hints such as "whoami --cached";
// the server session is always authoritative.
type Hint struct {
	Token string
	User  storefront.Profile
}

// SaveHint writes the hint under the well-known auth keys.
func SaveHint(ctx context.Context, store state.Store, h Hint) error {
	if err := store.Set(ctx, state.AuthTokenKey, []byte(h.Token), 0); err != nil {
		return fmt.Errorf("failed to save auth token: %w", err)
	}
	if err := state.SetJSON(ctx, store, state.AuthUserKey, h.User, 0); err != nil {
		return fmt.Errorf("failed to save auth user: %w", err)
	}
	return nil
}

// LoadHint reads the hint. ok is false when nothing is saved.
func LoadHint(ctx context.Context, store state.Store) (h Hint, ok bool, err error) {
	token, err := store.Get(ctx, state.AuthTokenKey)
	if state.IsNotFound(err) {
		return Hint{}, false, nil
	}
	if err != nil {
		return Hint{}, false, err
	}
	h.Token = string(token)
	if err := state.GetJSON(ctx, store, state.AuthUserKey, &h.User); err != nil && !state.IsNotFound(err) {
		return Hint{}, false, err
	}
	return h, true, nil
}

// ClearHint removes both auth keys.
func ClearHint(ctx context.Context, store state.Store) error {
	if err := store.Delete(ctx, state.AuthTokenKey); err != nil {
		return err
	}
	return store.Delete(ctx, state.AuthUserKey)
}
