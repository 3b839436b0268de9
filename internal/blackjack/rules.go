package blackjack

import "time"

// Fixed game coefficients. These are part of the payout contract and are not
// configurable.
const (
	maxSplitsPerPlayer = 3
	dealerStandsAt     = 17
)

// Rules carries the tunable table parameters.
type Rules struct {
	BetWindow    time.Duration // how long the betting stage stays open
	TurnTimeout  time.Duration // per-seat action window before auto-stand
	RestartDelay time.Duration // pause between rounds
	ResumeDelay  time.Duration // default pause length when the channel gives no hint
	Microloan    int           // flat bet available to broke players
	FixedBets    []int         // fixed bet buttons
	PercentBets  []int         // percent-of-balance bet buttons
}

// DefaultRules returns the table parameters the service ships with.
func DefaultRules() Rules {
	return Rules{
		BetWindow:    10 * time.Second,
		TurnTimeout:  20 * time.Second,
		RestartDelay: 15 * time.Second,
		ResumeDelay:  5 * time.Second,
		Microloan:    50,
		FixedBets:    []int{50, 100, 200, 300, 500},
		PercentBets:  []int{10, 20, 30, 50, 100},
	}
}

// ceilHalf returns half of n rounded up. Used for insurance pricing and the
// escape forfeit.
func ceilHalf(n int) int {
	return (n + 1) / 2
}

// blackjackBonus returns the profit for a natural: ceil(bet * 1.5).
func blackjackBonus(bet int) int {
	return bet + ceilHalf(bet)
}
