package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned when a balance adjustment would take a
// player below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInsufficientItems is returned when an item consumption would take an
// inventory count below zero.
var ErrInsufficientItems = errors.New("insufficient items")

// Player is a snapshot of a player's ledger state within one room.
type Player struct {
	RoomID  string
	ID      string
	Name    string
	Balance int
	Items   map[string]int
}

// Item identifiers the table engine consumes as capability flags.
const (
	ItemInsurance = "insurance"
	ItemEscape    = "escape"
	ItemHotcard   = "hotcard"
)

// Store is the ledger adapter consumed by the table engine. Balances and
// inventories are scoped per room; every mutation is atomic per call so
// concurrent rooms touching the same player cannot corrupt a balance.
type Store interface {
	// GetOrCreatePlayer returns the player's current state, creating the
	// record with the configured start balance on first sight.
	GetOrCreatePlayer(ctx context.Context, roomID, playerID, name string) (*Player, error)

	// AdjustBalance applies delta to the player's balance. It fails with
	// ErrInsufficientFunds when the result would be negative, leaving the
	// balance untouched.
	AdjustBalance(ctx context.Context, roomID, playerID string, delta int) error

	// HasItem reports whether the player holds at least qty of an item.
	HasItem(ctx context.Context, roomID, playerID, itemID string, qty int) (bool, error)

	// ConsumeItem applies delta (normally negative) to an item count,
	// failing with ErrInsufficientItems if the count would go negative.
	ConsumeItem(ctx context.Context, roomID, playerID, itemID string, delta int) error
}
