package cards

import "strings"

// Hand is an ordered sequence of cards held by a seat or the dealer.
type Hand []Card

// Value scores the hand with aces counted as 11 and demoted to 1 one at a
// time while the total exceeds 21.
func (h Hand) Value() int {
	total, aces := 0, 0
	for _, c := range h {
		if c.Rank == Ace {
			aces++
		}
		total += c.BaseValue()
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBust reports whether the hand value exceeds 21.
func (h Hand) IsBust() bool {
	return h.Value() > 21
}

// IsBlackjack reports whether the hand is a natural: exactly two cards
// totalling 21.
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Value() == 21
}

// IsPair reports whether the hand is exactly two cards of equal rank,
// which makes it eligible for a split. Suits are irrelevant.
func (h Hand) IsPair() bool {
	return len(h) == 2 && h[0].Rank == h[1].Rank
}

// String returns the cards joined by spaces, e.g. "A♠ 10♥".
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
