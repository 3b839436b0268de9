package cards

import rand "math/rand/v2"

// Deck represents a shuffled deck of playing cards. Cards are dealt by
// popping from the end of the slice, so the "top" of the deck is the last
// element.
type Deck struct {
	cards []Card
}

// NewDeck creates a full 52-card deck shuffled with the provided RNG.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// NewStackedDeck builds an unshuffled deck from the given cards. The last
// card listed is dealt first. Used by tests that need a known deal order.
func NewStackedDeck(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Pop removes and returns the top card from the deck.
func (d *Deck) Pop() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// PeekTop returns up to n cards from the top of the deck without removing
// them, ordered as they would be dealt.
func (d *Deck) PeekTop(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	top := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		top = append(top, d.cards[len(d.cards)-1-i])
	}
	return top
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
