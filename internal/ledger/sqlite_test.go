package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), 100)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreatePlayerSeedsStartBalance(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.GetOrCreatePlayer(ctx, "room1", "alice", "Alice")
	require.NoError(t, err)
	require.Equal(t, 100, p.Balance)

	// Second sight keeps the balance but refreshes the display name.
	require.NoError(t, s.AdjustBalance(ctx, "room1", "alice", -30))
	p, err = s.GetOrCreatePlayer(ctx, "room1", "alice", "Alice2")
	require.NoError(t, err)
	require.Equal(t, 70, p.Balance)
	require.Equal(t, "Alice2", p.Name)
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreatePlayer(ctx, "room1", "bob", "Bob")
	require.NoError(t, err)

	err = s.AdjustBalance(ctx, "room1", "bob", -101)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	p, err := s.GetOrCreatePlayer(ctx, "room1", "bob", "Bob")
	require.NoError(t, err)
	require.Equal(t, 100, p.Balance, "failed adjustment must not move the balance")
}

func TestBalancesAreScopedPerRoom(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreatePlayer(ctx, "room1", "carol", "Carol")
	require.NoError(t, err)
	_, err = s.GetOrCreatePlayer(ctx, "room2", "carol", "Carol")
	require.NoError(t, err)

	require.NoError(t, s.AdjustBalance(ctx, "room1", "carol", -60))

	p2, err := s.GetOrCreatePlayer(ctx, "room2", "carol", "Carol")
	require.NoError(t, err)
	require.Equal(t, 100, p2.Balance)
}

func TestItemLifecycle(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreatePlayer(ctx, "room1", "dave", "Dave")
	require.NoError(t, err)

	ok, err := s.HasItem(ctx, "room1", "dave", ItemEscape, 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.GrantItem(ctx, "room1", "dave", ItemEscape, 2))

	ok, err = s.HasItem(ctx, "room1", "dave", ItemEscape, 2)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.ConsumeItem(ctx, "room1", "dave", ItemEscape, -2))

	ok, err = s.HasItem(ctx, "room1", "dave", ItemEscape, 1)
	require.NoError(t, err)
	require.False(t, ok)

	err = s.ConsumeItem(ctx, "room1", "dave", ItemEscape, -1)
	require.ErrorIs(t, err, ErrInsufficientItems)
}
