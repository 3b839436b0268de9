package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Control is one inline action button attached to a rendered snapshot.
// Data is the opaque callback payload a client echoes back when the button
// is pressed.
type Control struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Channel renders a table snapshot into a room. Implementations may throttle
// or fail; callers are expected to treat every call as a suspension point.
type Channel interface {
	// Render replaces the room's session message with the given text and
	// control layout. It fails with a RateLimitedError when the room is
	// being updated too fast, or ErrTransient on a delivery problem.
	Render(ctx context.Context, roomID string, messageID int64, text string, controls [][]Control) error
}

// ErrTransient indicates a delivery failure that is worth retrying after a
// short pause.
var ErrTransient = errors.New("notify: transient delivery failure")

// RateLimitedError reports that the room's update budget is exhausted.
// RetryAfter carries the delay suggested by the throttle.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("notify: rate limited, retry after %s", e.RetryAfter)
}
