package blackjack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/retinskiymp/dodebbot/internal/cards"
	"github.com/retinskiymp/dodebbot/internal/notify"
)

// snapshot builds the deterministic text and control layout for the current
// stage. The caller diffs the result against the last emitted snapshot and
// skips redundant sends.
func (s *Session) snapshot() (string, [][]notify.Control) {
	var lines []string
	if s.banner != "" {
		lines = append(lines, s.banner)
	}

	switch s.stage {
	case StageBetting:
		for _, seat := range s.seats {
			lines = append(lines, fmt.Sprintf("• %s | bet: %d", seat.Name, seat.Bet))
		}
		if len(s.seats) == 0 {
			lines = append(lines, "no bets yet")
		}
		return strings.Join(lines, "\n"), s.betControls()

	case StagePlaying:
		up := s.dealer[0]
		lines = append(lines, fmt.Sprintf("• dealer: %s (%d)", up, up.BaseValue()), "")
		if seat := s.activeSeat(); seat != nil {
			lines = append(lines, fmt.Sprintf("🔸 turn: %s", seat.Name))
		}
		lines = append(lines, s.seatLines()...)
		return strings.Join(lines, "\n"), s.playControls()

	case StageRoundEnd:
		lines = append(lines, fmt.Sprintf("• dealer: %s (%d)", s.dealer.String(), s.dealer.Value()), "")
		for _, seat := range s.seats {
			lines = append(lines, seat.Result)
		}
		lines = append(lines, fmt.Sprintf("new round in %s", s.rules.RestartDelay))
		return strings.Join(lines, "\n"), nil

	case StageClosed:
		return s.closingTally(), nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Session) seatLines() []string {
	lines := make([]string, 0, len(s.seats))
	for i, seat := range s.seats {
		marker := "•"
		if i == s.active {
			marker = "▶"
		}
		flags := ""
		if seat.SplitOrigin {
			flags += " [split]"
		}
		if seat.Insured {
			flags += " [insured]"
		}
		if seat.Escaped {
			flags += " [escaped]"
		}
		lines = append(lines, fmt.Sprintf("%s %s | %s (%d) | bet: %d%s",
			marker, seat.Name, seat.Hand.String(), seat.Hand.Value(), seat.Bet, flags))
	}
	return lines
}

func (s *Session) betControls() [][]notify.Control {
	var fixed []notify.Control
	for _, v := range s.rules.FixedBets {
		fixed = append(fixed, notify.Control{Label: fmt.Sprintf("%d", v), Data: fmt.Sprintf("bj:bet:%d", v)})
	}
	var pct []notify.Control
	for _, v := range s.rules.PercentBets {
		pct = append(pct, notify.Control{Label: fmt.Sprintf("%d%%", v), Data: fmt.Sprintf("bj:bet:%d%%", v)})
	}
	loan := []notify.Control{{Label: fmt.Sprintf("loan %d", s.rules.Microloan), Data: "bj:bet:loan"}}
	return [][]notify.Control{fixed, pct, loan}
}

// playControls exposes only the actions the active seat could legally take;
// item-gated actions are always offered and validated on use, since only the
// ledger knows the inventory.
func (s *Session) playControls() [][]notify.Control {
	seat := s.activeSeat()
	if seat == nil {
		return nil
	}
	row := []notify.Control{
		{Label: "Hit", Data: "bj:act:hit"},
		{Label: "Stand", Data: "bj:act:stand"},
	}
	var extras []notify.Control
	if len(seat.Hand) == 2 {
		extras = append(extras, notify.Control{Label: "Double", Data: "bj:act:double"})
		if seat.Hand.IsPair() {
			extras = append(extras, notify.Control{Label: "Split", Data: "bj:act:split"})
		}
		if s.dealer[0].Rank == cards.Ace && !seat.Insured {
			extras = append(extras, notify.Control{Label: "Insure", Data: "bj:act:insurance"})
		}
		if !seat.Insured {
			extras = append(extras, notify.Control{Label: "Escape", Data: "bj:act:escape"})
		}
	}
	extras = append(extras, notify.Control{Label: "Hot card", Data: "bj:act:peek"})
	return [][]notify.Control{row, extras}
}

func (s *Session) closingTally() string {
	if len(s.totals) == 0 {
		return "♠ BLACKJACK: nobody bet, the table is closed."
	}
	ids := make([]string, 0, len(s.totals))
	for id := range s.totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := []string{"♠ BLACKJACK: table closed, session results:"}
	for _, id := range ids {
		net := s.totals[id]
		name := s.names[id]
		if name == "" {
			name = id
		}
		lines = append(lines, fmt.Sprintf("• %s: %+d", name, net))
	}
	return strings.Join(lines, "\n")
}

// flattenControls fingerprints a control layout for snapshot diffing.
func flattenControls(controls [][]notify.Control) string {
	var b strings.Builder
	for _, row := range controls {
		for _, c := range row {
			b.WriteString(c.Label)
			b.WriteByte('\x1f')
			b.WriteString(c.Data)
			b.WriteByte('\x1f')
		}
		b.WriteByte('\x1e')
	}
	return b.String()
}
