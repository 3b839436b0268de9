package blackjack

import (
	"context"
	"errors"
	"fmt"

	"github.com/retinskiymp/dodebbot/internal/cards"
	"github.com/retinskiymp/dodebbot/internal/ledger"
)

// ActionKind identifies a play action on the active seat.
type ActionKind int

const (
	ActionHit ActionKind = iota
	ActionStand
	ActionDouble
	ActionSplit
	ActionInsurance
	ActionEscape
	ActionPeek
)

// String returns the string representation of an action
func (a ActionKind) String() string {
	switch a {
	case ActionHit:
		return "hit"
	case ActionStand:
		return "stand"
	case ActionDouble:
		return "double"
	case ActionSplit:
		return "split"
	case ActionInsurance:
		return "insurance"
	case ActionEscape:
		return "escape"
	case ActionPeek:
		return "peek"
	default:
		return "unknown"
	}
}

// ParseAction decodes the wire form of an action kind.
func ParseAction(raw string) (ActionKind, error) {
	switch raw {
	case "hit":
		return ActionHit, nil
	case "stand":
		return ActionStand, nil
	case "double":
		return ActionDouble, nil
	case "split":
		return ActionSplit, nil
	case "insurance":
		return ActionInsurance, nil
	case "escape":
		return ActionEscape, nil
	case "peek":
		return ActionPeek, nil
	default:
		return 0, fmt.Errorf("unknown action %q", raw)
	}
}

// Act validates and applies a player action against the active seat. Illegal
// invocations are rejected with a user-visible reason and no state change.
// The returned string is a private reply for the acting player (peek hints,
// mostly).
func (s *Session) Act(ctx context.Context, playerID string, kind ActionKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(ctx)

	if s.closed {
		return "", ErrNoSession
	}
	if s.paused {
		return "", reject("the table is paused, hold on")
	}
	if s.stage != StagePlaying {
		return "", reject("no round in progress")
	}
	seat := s.activeSeat()
	if seat == nil || seat.PlayerID != playerID {
		return "", reject("not your turn")
	}

	reply, err := s.applyAction(ctx, seat, kind)
	if err != nil && !IsReject(err) && !errors.Is(err, ErrNoSession) {
		// Anything unexpected past validation is a table-level failure.
		s.fatal(ctx, err)
		return "", ErrNoSession
	}
	return reply, err
}

func (s *Session) applyAction(ctx context.Context, seat *Seat, kind ActionKind) (string, error) {
	switch kind {
	case ActionHit:
		return "", s.applyHit(ctx, seat)
	case ActionStand:
		s.cancelTimer()
		return "", s.advance(ctx)
	case ActionDouble:
		return "", s.applyDouble(ctx, seat)
	case ActionSplit:
		return "", s.applySplit(ctx, seat)
	case ActionInsurance:
		return s.applyInsurance(ctx, seat)
	case ActionEscape:
		return "", s.applyEscape(ctx, seat)
	case ActionPeek:
		return s.applyPeek(ctx, seat)
	default:
		return "", reject("unknown action")
	}
}

func (s *Session) applyHit(ctx context.Context, seat *Seat) error {
	s.cancelTimer()
	seat.Hand = append(seat.Hand, s.mustDraw())
	s.logger.Info("Hit", "player", seat.Name, "hand", seat.Hand.String(), "value", seat.Hand.Value())
	if seat.Hand.IsBust() {
		return s.advance(ctx)
	}
	s.render(ctx)
	s.armStageTimer()
	return nil
}

func (s *Session) applyDouble(ctx context.Context, seat *Seat) error {
	if len(seat.Hand) != 2 {
		return reject("double is only possible on the first two cards")
	}
	if err := s.store.AdjustBalance(ctx, s.roomID, seat.PlayerID, -seat.Bet); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return reject("not enough coins to double")
		}
		s.fatal(ctx, fmt.Errorf("double debit for %s: %w", seat.PlayerID, err))
		return ErrNoSession
	}
	s.cancelTimer()
	seat.Bet *= 2
	seat.Hand = append(seat.Hand, s.mustDraw())
	s.logger.Info("Double", "player", seat.Name, "bet", seat.Bet, "hand", seat.Hand.String())
	return s.advance(ctx)
}

func (s *Session) applySplit(ctx context.Context, seat *Seat) error {
	if !seat.Hand.IsPair() {
		return reject("split needs two cards of the same rank")
	}
	if s.splitsByPlayer[seat.PlayerID] >= maxSplitsPerPlayer {
		return reject("no more than %d splits per round", maxSplitsPerPlayer)
	}
	if err := s.store.AdjustBalance(ctx, s.roomID, seat.PlayerID, -seat.Bet); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return reject("not enough coins to split")
		}
		s.fatal(ctx, fmt.Errorf("split debit for %s: %w", seat.PlayerID, err))
		return ErrNoSession
	}
	s.cancelTimer()

	moved := seat.Hand[1]
	derived := &Seat{
		PlayerID:    seat.PlayerID,
		Name:        seat.Name,
		Bet:         seat.Bet,
		SplitOrigin: true,
		Hand:        cards.Hand{moved},
	}
	seat.Hand = cards.Hand{seat.Hand[0]}
	seat.Hand = append(seat.Hand, s.mustDraw())
	derived.Hand = append(derived.Hand, s.mustDraw())
	// New seats always go to the end of the turn order.
	s.seats = append(s.seats, derived)
	s.splitsByPlayer[seat.PlayerID]++

	s.logger.Info("Split", "player", seat.Name,
		"splits", s.splitsByPlayer[seat.PlayerID],
		"hand", seat.Hand.String(), "derived", derived.Hand.String())
	s.render(ctx)
	s.armStageTimer()
	return nil
}

func (s *Session) applyInsurance(ctx context.Context, seat *Seat) (string, error) {
	if len(seat.Hand) != 2 {
		return "", reject("insurance is only possible on the first two cards")
	}
	if s.dealer[0].Rank != cards.Ace {
		return "", reject("insurance needs an ace showing")
	}
	if seat.Insured {
		return "", reject("already insured")
	}
	has, err := s.store.HasItem(ctx, s.roomID, seat.PlayerID, ledger.ItemInsurance, 1)
	if err != nil {
		s.fatal(ctx, fmt.Errorf("check insurance item for %s: %w", seat.PlayerID, err))
		return "", ErrNoSession
	}
	if !has {
		return "", reject("you need an insurance policy item")
	}
	premium := ceilHalf(seat.Bet)
	if err := s.store.AdjustBalance(ctx, s.roomID, seat.PlayerID, -premium); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return "", reject("not enough coins for the %d premium", premium)
		}
		s.fatal(ctx, fmt.Errorf("insurance debit for %s: %w", seat.PlayerID, err))
		return "", ErrNoSession
	}
	if err := s.store.ConsumeItem(ctx, s.roomID, seat.PlayerID, ledger.ItemInsurance, -1); err != nil {
		s.fatal(ctx, fmt.Errorf("consume insurance item for %s: %w", seat.PlayerID, err))
		return "", ErrNoSession
	}
	seat.Insured = true
	seat.InsuranceAmount = premium
	s.logger.Info("Insurance taken", "player", seat.Name, "premium", premium)
	// The seat still has its turn; the per-turn timer keeps running.
	s.render(ctx)
	return fmt.Sprintf("insured for %d", premium), nil
}

func (s *Session) applyEscape(ctx context.Context, seat *Seat) error {
	if len(seat.Hand) != 2 {
		return reject("escape is only possible on the first two cards")
	}
	if seat.Insured {
		return reject("cannot escape after taking insurance")
	}
	has, err := s.store.HasItem(ctx, s.roomID, seat.PlayerID, ledger.ItemEscape, 1)
	if err != nil {
		s.fatal(ctx, fmt.Errorf("check escape item for %s: %w", seat.PlayerID, err))
		return ErrNoSession
	}
	if !has {
		return reject("you need an escape rope item")
	}
	if err := s.store.ConsumeItem(ctx, s.roomID, seat.PlayerID, ledger.ItemEscape, -1); err != nil {
		s.fatal(ctx, fmt.Errorf("consume escape item for %s: %w", seat.PlayerID, err))
		return ErrNoSession
	}
	s.cancelTimer()
	seat.Escaped = true
	s.logger.Info("Escape", "player", seat.Name, "forfeit", ceilHalf(seat.Bet))
	return s.advance(ctx)
}

// applyPeek inspects a small random lookahead window of the remaining deck
// and answers with a coarse bias signal. The deck itself is untouched.
func (s *Session) applyPeek(ctx context.Context, seat *Seat) (string, error) {
	has, err := s.store.HasItem(ctx, s.roomID, seat.PlayerID, ledger.ItemHotcard, 1)
	if err != nil {
		s.fatal(ctx, fmt.Errorf("check hotcard item for %s: %w", seat.PlayerID, err))
		return "", ErrNoSession
	}
	if !has {
		return "", reject("you need a hot card item")
	}
	if err := s.store.ConsumeItem(ctx, s.roomID, seat.PlayerID, ledger.ItemHotcard, -1); err != nil {
		s.fatal(ctx, fmt.Errorf("consume hotcard item for %s: %w", seat.PlayerID, err))
		return "", ErrNoSession
	}

	window := s.deck.PeekTop(4 + s.rng.IntN(3))
	high := 0
	for _, c := range window {
		if c.IsTenValued() {
			high++
		}
	}
	hint := "no clear bias"
	switch {
	case len(window) == 0:
		hint = "no clear bias"
	case high*10 >= len(window)*6:
		hint = "mostly high cards ahead"
	case high*10 <= len(window)*4:
		hint = "mostly low cards ahead"
	}
	s.logger.Info("Hot card used", "player", seat.Name, "window", len(window), "high", high)
	return hint, nil
}
