package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/retinskiymp/dodebbot/internal/notify"
)

// Server exposes the websocket endpoint rooms connect to. Each connection
// subscribes to one room's snapshots and may issue commands on behalf of one
// player. All outbound traffic for a connection flows through its client's
// write pump.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	hub      *notify.Hub
	gateway  *Gateway
	logger   *log.Logger
}

// NewServer creates the websocket front door.
func NewServer(addr string, hub *notify.Hub, gateway *Gateway, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		hub:     hub,
		gateway: gateway,
		logger:  logger.WithPrefix("server"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// commandFrame is the inbound message shape: the data field carries the same
// payload as the control buttons attached to snapshots.
type commandFrame struct {
	Data string `json:"data"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	room, player, name := q.Get("room"), q.Get("player"), q.Get("name")
	if room == "" || player == "" {
		http.Error(w, "room and player are required", http.StatusBadRequest)
		return
	}
	if name == "" {
		name = player
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := notify.NewClient(room, conn, s.logger)
	s.hub.Register(client)
	go client.WritePump()
	go s.readPump(conn, client, room, player, name)
}

func (s *Server) readPump(conn *websocket.Conn, client *notify.Client, room, player, name string) {
	defer func() {
		s.hub.Unregister(client)
		client.Close()
	}()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Unexpected close", "room", room, "player", player, "error", err)
			}
			return
		}
		var frame commandFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.logger.Warn("Bad command frame", "room", room, "player", player, "error", err)
			continue
		}
		answer := s.gateway.Dispatch(context.Background(), room, player, name, frame.Data)
		// Answers ride the same write pump as snapshots so the connection
		// only ever has a single writer.
		if err := client.Send(notify.Snapshot{Type: "answer", RoomID: room, Text: answer}); err != nil {
			s.logger.Debug("Failed to queue answer", "room", room, "player", player, "error", err)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}
