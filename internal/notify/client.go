package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned when sending to a client whose connection has
// been torn down.
var ErrClientClosed = errors.New("notify: client closed")

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Client is one websocket subscriber watching a single room.
type Client struct {
	room   string
	conn   *websocket.Conn
	send   chan Snapshot
	done   chan struct{}
	closed bool
	mu     sync.Mutex
	logger *log.Logger
}

// NewClient wraps an upgraded websocket connection scoped to a room.
func NewClient(room string, conn *websocket.Conn, logger *log.Logger) *Client {
	return &Client{
		room:   room,
		conn:   conn,
		send:   make(chan Snapshot, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.WithPrefix("client").With("room", room),
	}
}

// Room implements Sender.
func (c *Client) Room() string {
	return c.room
}

// Send implements Sender. It never blocks the caller: a full outbound queue
// counts as a delivery failure.
func (c *Client) Send(snap Snapshot) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.mu.Unlock()

	select {
	case c.send <- snap:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return errors.New("notify: send queue full")
	}
}

// WritePump drains the outbound queue onto the websocket connection. It
// returns when the connection breaks or Close is called.
func (c *Client) WritePump() {
	defer c.Close()
	for {
		select {
		case snap := <-c.send:
			payload, err := json.Marshal(snap)
			if err != nil {
				c.logger.Error("Failed to encode snapshot", "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("Write failed, dropping client", "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.conn.Close()
}
