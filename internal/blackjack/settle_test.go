package blackjack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retinskiymp/dodebbot/internal/cards"
)

func hand(ranks ...cards.Rank) cards.Hand {
	h := make(cards.Hand, 0, len(ranks))
	for _, r := range ranks {
		h = append(h, cards.NewCard(cards.Clubs, r))
	}
	return h
}

func TestSettleSeat(t *testing.T) {
	tests := []struct {
		name    string
		seat    Seat
		dealer  cards.Hand
		credit  int
		profit  int
		inLabel string
	}{
		{
			name:   "push returns the bet",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Seven)},
			dealer: hand(cards.Nine, cards.Eight),
			credit: 100, profit: 0, inLabel: "push",
		},
		{
			name:   "plain win pays even money",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Nine)},
			dealer: hand(cards.Ten, cards.Seven),
			credit: 200, profit: 100, inLabel: "+100",
		},
		{
			name:   "loss forfeits the bet",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Six)},
			dealer: hand(cards.Ten, cards.Seven),
			credit: 0, profit: -100, inLabel: "-100",
		},
		{
			name:   "bust loses even against a dealer bust",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Six, cards.Nine)},
			dealer: hand(cards.Ten, cards.Six, cards.King),
			credit: 0, profit: -100, inLabel: "bust",
		},
		{
			name:   "dealer bust pays a standing seat",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Two)},
			dealer: hand(cards.Ten, cards.Six, cards.King),
			credit: 200, profit: 100, inLabel: "+100",
		},
		{
			name:   "natural pays three to two rounded up",
			seat:   Seat{Name: "alice", Bet: 25, Hand: hand(cards.Ace, cards.King)},
			dealer: hand(cards.Ten, cards.Seven),
			credit: 25 + 38, profit: 38, inLabel: "blackjack",
		},
		{
			name:   "natural beats a drawn twenty one",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ace, cards.King)},
			dealer: hand(cards.Ten, cards.Five, cards.Six),
			credit: 250, profit: 150, inLabel: "blackjack",
		},
		{
			name:   "dealer natural beats a drawn twenty one",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ten, cards.Five, cards.Six)},
			dealer: hand(cards.Ace, cards.King),
			credit: 0, profit: -100, inLabel: "dealer blackjack",
		},
		{
			name:   "both naturals push",
			seat:   Seat{Name: "alice", Bet: 100, Hand: hand(cards.Ace, cards.Queen)},
			dealer: hand(cards.Ace, cards.King),
			credit: 100, profit: 0, inLabel: "push",
		},
		{
			name:   "escape forfeits half rounded up",
			seat:   Seat{Name: "alice", Bet: 101, Escaped: true, Hand: hand(cards.Ten, cards.Six)},
			dealer: hand(cards.Ace, cards.King),
			credit: 50, profit: -51, inLabel: "escaped",
		},
		{
			name:   "insurance pays on a dealer natural",
			seat:   Seat{Name: "alice", Bet: 100, Insured: true, InsuranceAmount: 50, Hand: hand(cards.Ten, cards.Nine)},
			dealer: hand(cards.Ace, cards.King),
			credit: 150, profit: 0, inLabel: "insurance +100",
		},
		{
			name:   "insurance premium is lost otherwise",
			seat:   Seat{Name: "alice", Bet: 100, Insured: true, InsuranceAmount: 50, Hand: hand(cards.Ten, cards.Nine)},
			dealer: hand(cards.Ten, cards.Seven),
			credit: 200, profit: 50, inLabel: "insurance -50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := settleSeat(&tt.seat, tt.dealer)
			require.Equal(t, tt.credit, o.credit, "credit")
			require.Equal(t, tt.profit, o.profit, "profit")
			require.Contains(t, o.label, tt.inLabel)
		})
	}
}

func TestPayoutRounding(t *testing.T) {
	require.Equal(t, 1, ceilHalf(1))
	require.Equal(t, 1, ceilHalf(2))
	require.Equal(t, 2, ceilHalf(3))
	require.Equal(t, 50, ceilHalf(100))
	require.Equal(t, 51, ceilHalf(101))

	require.Equal(t, 150, blackjackBonus(100))
	require.Equal(t, 38, blackjackBonus(25))
}
