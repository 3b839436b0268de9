package blackjack

import (
	"context"
	"fmt"

	"github.com/retinskiymp/dodebbot/internal/cards"
)

// outcome is a seat's resolved result before the ledger write.
type outcome struct {
	// credit is what returns to the player's balance: the original stake
	// plus winnings, or a partial stake on escape, or nothing on a loss.
	credit int
	// profit is the seat's net change including insurance, accumulated
	// into the cross-round session totals.
	profit int
	label  string
}

// settleSeat resolves one seat against the finished dealer hand. Seats are
// independent of each other; an escaped seat ignores the table result
// entirely.
func settleSeat(seat *Seat, dealer cards.Hand) outcome {
	bet := seat.Bet

	var o outcome
	switch {
	case seat.Escaped:
		forfeit := ceilHalf(bet)
		o = outcome{credit: bet - forfeit, profit: -forfeit, label: fmt.Sprintf("🏃 %s -%d (escaped)", seat.Name, forfeit)}
	case seat.Hand.IsBust():
		o = outcome{credit: 0, profit: -bet, label: fmt.Sprintf("💀 %s -%d (bust)", seat.Name, bet)}
	case dealer.IsBlackjack() && !seat.Hand.IsBlackjack():
		o = outcome{credit: 0, profit: -bet, label: fmt.Sprintf("💀 %s -%d (dealer blackjack)", seat.Name, bet)}
	case seat.Hand.IsBlackjack() && !dealer.IsBlackjack():
		win := blackjackBonus(bet)
		o = outcome{credit: bet + win, profit: win, label: fmt.Sprintf("🏅 %s +%d (blackjack)", seat.Name, win)}
	case dealer.IsBust() || seat.Hand.Value() > dealer.Value():
		o = outcome{credit: bet * 2, profit: bet, label: fmt.Sprintf("🏅 %s +%d", seat.Name, bet)}
	case seat.Hand.Value() < dealer.Value():
		o = outcome{credit: 0, profit: -bet, label: fmt.Sprintf("💀 %s -%d", seat.Name, bet)}
	default:
		o = outcome{credit: bet, profit: 0, label: fmt.Sprintf("😑 %s push", seat.Name)}
	}

	if seat.Insured {
		ins := seat.InsuranceAmount
		if dealer.IsBlackjack() {
			o.credit += ins * 3
			o.profit += ins * 2
			o.label += fmt.Sprintf(" | insurance +%d", ins*2)
		} else {
			o.profit -= ins
			o.label += fmt.Sprintf(" | insurance -%d", ins)
		}
	}
	return o
}

// finishRound runs the dealer draw-out, settles every seat, applies the
// ledger writes together, and moves the table to the round-end stage. Any
// failure mid-settlement escalates to the fatal refund path; seats already
// written out are marked settled so the refund never double-pays.
func (s *Session) finishRound(ctx context.Context) error {
	s.cancelTimer()

	for s.dealer.Value() < dealerStandsAt {
		s.dealer = append(s.dealer, s.mustDraw())
	}
	s.logger.Info("Dealer done", "hand", s.dealer.String(), "value", s.dealer.Value())

	for _, seat := range s.seats {
		o := settleSeat(seat, s.dealer)

		if o.credit > 0 {
			if err := s.store.AdjustBalance(ctx, s.roomID, seat.PlayerID, o.credit); err != nil {
				return fmt.Errorf("settle seat of %s: %w", seat.PlayerID, err)
			}
		}
		seat.settled = true
		s.totals[seat.PlayerID] += o.profit

		label := o.label
		if p, err := s.store.GetOrCreatePlayer(ctx, s.roomID, seat.PlayerID, seat.Name); err == nil {
			label += fmt.Sprintf(" | 🏦 %d", p.Balance)
		}
		seat.Result = label
		s.logger.Info("Seat settled", "player", seat.Name, "profit", o.profit)
	}

	s.stage = StageRoundEnd
	s.banner = "📊 round results"
	s.render(ctx)
	s.armStageTimer()
	return nil
}
