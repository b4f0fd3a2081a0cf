package cartcache

import (
	"fmt"

	"github.com/dyluth/shop/pkg/storefront"
)

// Kind identifies a cart mutation.
type Kind string

const (
	KindIncrement Kind = "increment"
	KindDecrement Kind = "decrement"
	KindRemove    Kind = "remove"
)

// Phase is where a mutation is in its lifecycle:
// Idle -> Applying -> Committed | RolledBack.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApplying
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseApplying:
		return "applying"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Mutation is one optimistic change to a cart item.
//
// Requested is what the caller asked for; Kind is what was sent to the
// server (a decrement at quantity 1 becomes a remove).
type Mutation struct {
	Requested Kind
	Kind      Kind
	ItemID    int
	Phase     Phase

	// Snapshot is the whole cart as it was before the mutation was applied.
	Snapshot storefront.Cart
	// Before is the item as it was; Index its position in Snapshot.
	Before storefront.CartItem
	Index  int
	// After is the optimistic projection of the item (zero for removals).
	After storefront.CartItem

	Err error
}

// Settled reports whether the mutation has finished either way.
func (m Mutation) Settled() bool {
	return m.Phase == PhaseCommitted || m.Phase == PhaseRolledBack
}

// MutationError is returned when the server rejected a mutation and the
// optimistic change was rolled back.
type MutationError struct {
	Mutation Mutation
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to %s item %d (change reverted): %v", e.Mutation.Requested, e.Mutation.ItemID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// ItemNotFoundError is returned when the item is in neither the cached nor the server cart.
type ItemNotFoundError struct {
	ItemID int
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("cart item %d not found", e.ItemID)
}
