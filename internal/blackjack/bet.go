package blackjack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/retinskiymp/dodebbot/internal/ledger"
)

// BetKind selects how an AmountSpec is interpreted.
type BetKind int

const (
	// BetFixed stakes Value coins.
	BetFixed BetKind = iota
	// BetPercent stakes Value percent of the player's available funds.
	BetPercent
	// BetMicroloan stakes the configured microloan amount, available only
	// to players whose funds are below it.
	BetMicroloan
)

// AmountSpec is a bet placement request.
type AmountSpec struct {
	Kind  BetKind
	Value int
}

// ParseAmountSpec decodes the wire form of a bet: "100", "50%" or "loan".
func ParseAmountSpec(raw string) (AmountSpec, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "loan":
		return AmountSpec{Kind: BetMicroloan}, nil
	case strings.HasSuffix(raw, "%"):
		pct, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
		if err != nil {
			return AmountSpec{}, fmt.Errorf("bad percent bet %q", raw)
		}
		return AmountSpec{Kind: BetPercent, Value: pct}, nil
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return AmountSpec{}, fmt.Errorf("bad bet amount %q", raw)
		}
		return AmountSpec{Kind: BetFixed, Value: n}, nil
	}
}

// PlaceBet stages or replaces a player's bet for the round being assembled.
// The stake is debited immediately; changing a bet moves only the delta.
// Re-submitting the identical amount is a no-op with no ledger traffic.
func (s *Session) PlaceBet(ctx context.Context, playerID, name string, spec AmountSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(ctx)

	if s.closed {
		return "", ErrNoSession
	}
	if s.paused {
		return "", reject("the table is paused, hold on")
	}
	if s.stage != StageBetting {
		return "", reject("betting is closed")
	}

	player, err := s.store.GetOrCreatePlayer(ctx, s.roomID, playerID, name)
	if err != nil {
		s.fatal(ctx, fmt.Errorf("load player %s: %w", playerID, err))
		return "", ErrNoSession
	}

	seat := s.seatForPlayer(playerID)
	staged := 0
	if seat != nil {
		staged = seat.Bet
	}
	available := player.Balance + staged

	amount := 0
	switch spec.Kind {
	case BetFixed:
		amount = spec.Value
	case BetPercent:
		amount = available * spec.Value / 100
	case BetMicroloan:
		if available >= s.rules.Microloan {
			return "", reject("the microloan is only for players with less than %d", s.rules.Microloan)
		}
		amount = s.rules.Microloan
	default:
		return "", reject("unknown bet kind")
	}

	if amount <= 0 {
		return "", reject("bet must be positive")
	}
	if spec.Kind != BetMicroloan && amount > available {
		return "", reject("not enough coins: you have %d", available)
	}
	if amount == staged {
		return fmt.Sprintf("bet stays at %d", amount), nil
	}

	if spec.Kind == BetMicroloan {
		// The loan tops the player up first; the stake is then debited like
		// any other bet.
		if err := s.store.AdjustBalance(ctx, s.roomID, playerID, s.rules.Microloan); err != nil {
			s.fatal(ctx, fmt.Errorf("grant microloan to %s: %w", playerID, err))
			return "", ErrNoSession
		}
	}

	delta := amount - staged
	if err := s.store.AdjustBalance(ctx, s.roomID, playerID, -delta); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return "", reject("not enough coins: you have %d", available)
		}
		s.fatal(ctx, fmt.Errorf("stake bet for %s: %w", playerID, err))
		return "", ErrNoSession
	}

	if seat == nil {
		seat = &Seat{PlayerID: playerID, Name: player.Name}
		s.seats = append(s.seats, seat)
	}
	seat.Bet = amount
	s.names[playerID] = player.Name

	s.logger.Info("Bet staged", "player", player.Name, "amount", amount, "was", staged)
	s.render(ctx)
	return fmt.Sprintf("bet of %d accepted", amount), nil
}
