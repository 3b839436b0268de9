package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	room string
	got  []Snapshot
	fail bool
}

func (f *fakeSender) Room() string { return f.room }

func (f *fakeSender) Send(snap Snapshot) error {
	if f.fail {
		return errors.New("boom")
	}
	f.got = append(f.got, snap)
	return nil
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestRenderFansOutToRoomClients(t *testing.T) {
	t.Parallel()
	hub := NewHub(testLogger(), 100, 10)
	a := &fakeSender{room: "room1"}
	b := &fakeSender{room: "room2"}
	hub.Register(a)
	hub.Register(b)

	err := hub.Render(context.Background(), "room1", 7, "hello", nil)
	require.NoError(t, err)
	require.Len(t, a.got, 1)
	require.Empty(t, b.got, "other rooms must not receive the snapshot")
	require.Equal(t, int64(7), a.got[0].MessageID)
}

func TestRenderRateLimits(t *testing.T) {
	t.Parallel()
	hub := NewHub(testLogger(), 1, 1)
	c := &fakeSender{room: "room1"}
	hub.Register(c)

	require.NoError(t, hub.Render(context.Background(), "room1", 1, "one", nil))

	err := hub.Render(context.Background(), "room1", 1, "two", nil)
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.Greater(t, rl.RetryAfter.Nanoseconds(), int64(0))

	// Other rooms have independent budgets.
	require.NoError(t, hub.Render(context.Background(), "room2", 1, "one", nil))
}

func TestRenderAllDeliveriesFailedIsTransient(t *testing.T) {
	t.Parallel()
	hub := NewHub(testLogger(), 100, 10)
	hub.Register(&fakeSender{room: "room1", fail: true})

	err := hub.Render(context.Background(), "room1", 1, "text", nil)
	require.ErrorIs(t, err, ErrTransient)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub(testLogger(), 100, 10)
	c := &fakeSender{room: "room1"}
	hub.Register(c)
	hub.Unregister(c)

	require.NoError(t, hub.Render(context.Background(), "room1", 1, "text", nil))
	require.Empty(t, c.got)
}
