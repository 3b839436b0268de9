package notify

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Snapshot is the JSON frame delivered to room clients for every accepted
// render.
type Snapshot struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"room"`
	MessageID int64       `json:"message_id"`
	Text      string      `json:"text"`
	Controls  [][]Control `json:"controls,omitempty"`
}

// Sender is the delivery side of a connected room client. *Client implements
// it; tests substitute their own.
type Sender interface {
	Send(snap Snapshot) error
	Room() string
}

// Hub fans rendered snapshots out to the clients watching each room. Every
// room carries its own token-bucket limiter; a render that exceeds the
// budget is rejected with a RateLimitedError instead of blocking, so table
// sessions experience throttling the same way they would against a chat
// platform API.
type Hub struct {
	mu       sync.RWMutex
	clients  map[Sender]bool
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   *log.Logger
}

// NewHub creates a hub allowing roughly ratePerSec renders per room with the
// given burst.
func NewHub(logger *log.Logger, ratePerSec float64, burst int) *Hub {
	return &Hub{
		clients:  make(map[Sender]bool),
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(ratePerSec),
		burst:    burst,
		logger:   logger.WithPrefix("hub"),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c Sender) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Client connected", "room", c.Room(), "total", total)
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c Sender) {
	h.mu.Lock()
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Client disconnected", "room", c.Room(), "total", total)
}

// Render implements Channel.
func (h *Hub) Render(ctx context.Context, roomID string, messageID int64, text string, controls [][]Control) error {
	if err := ctx.Err(); err != nil {
		return ErrTransient
	}

	lim := h.roomLimiter(roomID)
	res := lim.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		h.logger.Debug("Render throttled", "room", roomID, "retry_after", delay)
		return &RateLimitedError{RetryAfter: delay}
	}

	snap := Snapshot{
		Type:      "snapshot",
		RoomID:    roomID,
		MessageID: messageID,
		Text:      text,
		Controls:  controls,
	}

	h.mu.RLock()
	targets := make([]Sender, 0, len(h.clients))
	for c := range h.clients {
		if c.Room() == roomID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var failed int
	for _, c := range targets {
		if err := c.Send(snap); err != nil {
			h.logger.Error("Failed to deliver snapshot", "room", roomID, "error", err)
			failed++
		}
	}
	if len(targets) > 0 && failed == len(targets) {
		return ErrTransient
	}
	return nil
}

func (h *Hub) roomLimiter(roomID string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[roomID]
	if !ok {
		lim = rate.NewLimiter(h.limit, h.burst)
		h.limiters[roomID] = lim
	}
	return lim
}
