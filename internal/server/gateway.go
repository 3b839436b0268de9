package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/retinskiymp/dodebbot/internal/blackjack"
)

// Gateway translates room command frames into table engine calls. It is the
// dispatch boundary: every engine rejection comes back as a user-facing
// answer string, never as an error that escapes to the transport.
type Gateway struct {
	registry *blackjack.Registry
	logger   *log.Logger
}

// NewGateway creates a gateway over the session registry.
func NewGateway(registry *blackjack.Registry, logger *log.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		logger:   logger.WithPrefix("gateway"),
	}
}

// Dispatch handles one command payload from a player in a room and returns
// the private answer to show them. Payloads mirror the control callbacks:
// "bj:start", "bj:bet:<amount|N%|loan>", "bj:act:<kind>".
func (g *Gateway) Dispatch(ctx context.Context, roomID, playerID, name, data string) string {
	reply, err := g.dispatch(ctx, roomID, playerID, name, data)
	if err == nil {
		return reply
	}

	switch {
	case blackjack.IsReject(err):
		return err.Error()
	case errors.Is(err, blackjack.ErrSessionExists):
		return "a game is already running in this room"
	case errors.Is(err, blackjack.ErrNoSession):
		return "no game is running, start one first"
	default:
		g.logger.Error("Command failed", "room", roomID, "player", playerID, "data", data, "error", err)
		return "something went wrong, try again later"
	}
}

func (g *Gateway) dispatch(ctx context.Context, roomID, playerID, name, data string) (string, error) {
	switch {
	case data == "bj:start":
		if _, err := g.registry.Start(ctx, roomID); err != nil {
			return "", err
		}
		return "table opened, place your bets", nil

	case strings.HasPrefix(data, "bj:bet:"):
		spec, err := blackjack.ParseAmountSpec(strings.TrimPrefix(data, "bj:bet:"))
		if err != nil {
			return "", fmt.Errorf("parse bet: %w", err)
		}
		session, ok := g.registry.Get(roomID)
		if !ok {
			return "", blackjack.ErrNoSession
		}
		return session.PlaceBet(ctx, playerID, name, spec)

	case strings.HasPrefix(data, "bj:act:"):
		kind, err := blackjack.ParseAction(strings.TrimPrefix(data, "bj:act:"))
		if err != nil {
			return "", fmt.Errorf("parse action: %w", err)
		}
		session, ok := g.registry.Get(roomID)
		if !ok {
			return "", blackjack.ErrNoSession
		}
		reply, err := session.Act(ctx, playerID, kind)
		if err != nil {
			return "", err
		}
		if reply == "" {
			reply = "ok"
		}
		return reply, nil

	default:
		return "", &blackjack.RejectError{Reason: fmt.Sprintf("unknown command %q", data)}
	}
}
