package blackjack

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/retinskiymp/dodebbot/internal/cards"
	"github.com/retinskiymp/dodebbot/internal/ledger"
	"github.com/retinskiymp/dodebbot/internal/notify"
)

// Stage is the lifecycle phase of a table session.
type Stage int

const (
	StageBetting Stage = iota
	StagePlaying
	StageRoundEnd
	StageClosed
)

// String returns the string representation of a stage
func (s Stage) String() string {
	switch s {
	case StageBetting:
		return "betting"
	case StagePlaying:
		return "playing"
	case StageRoundEnd:
		return "round_end"
	case StageClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Seat is one hand in play. A player occupies one seat per round unless a
// split appends extra seats to the end of the turn order.
type Seat struct {
	PlayerID        string
	Name            string
	Hand            cards.Hand
	Bet             int
	SplitOrigin     bool
	Insured         bool
	InsuranceAmount int
	Escaped         bool
	Result          string

	settled bool
}

// Session is a single room's blackjack table. All state transitions run
// under the session mutex; timer callbacks, player commands, and renders
// never interleave for the same room.
type Session struct {
	mu sync.Mutex

	roomID    string
	messageID int64

	stage  Stage
	paused bool
	closed bool

	deck   *cards.Deck
	dealer cards.Hand
	seats  []*Seat
	active int

	// splitsByPlayer counts splits produced per original player this round.
	splitsByPlayer map[string]int

	// totals is net profit per player across consecutive rounds at this
	// table; reported when the table closes.
	totals map[string]int
	names  map[string]string

	banner   string
	lastText string
	lastCtls string

	timer    *quartz.Timer
	timerGen int

	store   ledger.Store
	channel notify.Channel
	clock   quartz.Clock
	logger  *log.Logger
	rules   Rules
	rng     *rand.Rand

	// buildDeck makes the fresh shoe for each round. Tests swap it for a
	// stacked deck to pin specific deals.
	buildDeck func(rng *rand.Rand) *cards.Deck

	onClose func()
}

func newSession(roomID string, messageID int64, deps Deps, rng *rand.Rand, onClose func()) *Session {
	return &Session{
		roomID:         roomID,
		messageID:      messageID,
		stage:          StageBetting,
		splitsByPlayer: make(map[string]int),
		totals:         make(map[string]int),
		names:          make(map[string]string),
		active:         0,
		store:          deps.Store,
		channel:        deps.Channel,
		clock:          deps.Clock,
		logger:         deps.Logger.WithPrefix("session").With("room", roomID),
		rules:          deps.Rules,
		rng:            rng,
		buildDeck:      cards.NewDeck,
		onClose:        onClose,
	}
}

// start renders the opening betting snapshot and arms the bet window timer.
func (s *Session) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("Table opened", "bet_window", s.rules.BetWindow)
	s.banner = fmt.Sprintf("♠ BLACKJACK: betting open for %s", s.rules.BetWindow)
	s.render(ctx)
	s.armStageTimer()
}

// Stage returns the current stage. Exposed for the command layer and tests.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Paused reports whether the session is currently frozen by a notification
// failure.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// RoomID returns the room this session belongs to.
func (s *Session) RoomID() string {
	return s.roomID
}

// armTimer replaces any pending timer with a new one. The generation counter
// guards against a superseded callback that already fired and is waiting on
// the mutex.
func (s *Session) armTimer(d time.Duration, fn func(ctx context.Context)) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.guard(context.Background())
		if s.closed || gen != s.timerGen {
			return
		}
		fn(context.Background())
	})
}

func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// armStageTimer arms the timer that belongs to the current stage. It is a
// no-op while paused or closed; the resume path re-arms instead.
func (s *Session) armStageTimer() {
	if s.paused || s.closed {
		return
	}
	switch s.stage {
	case StageBetting:
		s.armTimer(s.rules.BetWindow, s.endBetting)
	case StagePlaying:
		s.armTimer(s.rules.TurnTimeout, s.turnTimeout)
	case StageRoundEnd:
		s.armTimer(s.rules.RestartDelay, s.restart)
	}
}

// endBetting closes the bet window: with no seats the table shuts down,
// otherwise cards are dealt and the turn loop starts.
func (s *Session) endBetting(ctx context.Context) {
	if s.stage != StageBetting {
		return
	}
	kept := s.seats[:0]
	for _, seat := range s.seats {
		if seat.Bet > 0 {
			kept = append(kept, seat)
		}
	}
	s.seats = kept

	if len(s.seats) == 0 {
		s.logger.Info("No bets placed, closing table")
		s.close(ctx)
		return
	}

	s.deck = s.buildDeck(s.rng)
	s.dealer = nil
	for i := 0; i < 2; i++ {
		s.dealer = append(s.dealer, s.mustDraw())
	}
	for _, seat := range s.seats {
		seat.Hand = cards.Hand{s.mustDraw(), s.mustDraw()}
	}
	s.active = 0
	s.stage = StagePlaying
	s.banner = ""
	s.logger.Info("Round dealt", "seats", len(s.seats), "dealer_up", s.dealer[0])
	s.render(ctx)
	s.armStageTimer()
}

// turnTimeout fires the implicit stand for the active seat.
func (s *Session) turnTimeout(ctx context.Context) {
	if s.stage != StagePlaying || s.active >= len(s.seats) {
		return
	}
	s.logger.Info("Turn timed out, auto-standing", "seat", s.active, "player", s.seats[s.active].Name)
	if err := s.advance(ctx); err != nil {
		s.fatal(ctx, err)
	}
}

// advance moves the turn cursor to the next seat; past the last seat it runs
// the dealer draw-out and settlement.
func (s *Session) advance(ctx context.Context) error {
	s.active++
	if s.active >= len(s.seats) {
		return s.finishRound(ctx)
	}
	s.render(ctx)
	s.armStageTimer()
	return nil
}

// restart clears the round and reopens betting.
func (s *Session) restart(ctx context.Context) {
	if s.stage != StageRoundEnd {
		return
	}
	s.seats = nil
	s.dealer = nil
	s.deck = nil
	s.active = 0
	s.splitsByPlayer = make(map[string]int)
	s.stage = StageBetting
	s.banner = "🔁 betting open again"
	s.logger.Info("Round restarted, betting open")
	s.render(ctx)
	s.armStageTimer()
}

// close is the clean terminal transition: render the session tally and
// deregister.
func (s *Session) close(ctx context.Context) {
	s.stage = StageClosed
	s.closed = true
	s.cancelTimer()
	// Force the final snapshot out even if nothing else changed.
	s.lastText, s.lastCtls = "", ""
	text, controls := s.snapshot()
	if err := s.channel.Render(ctx, s.roomID, s.messageID, text, controls); err != nil {
		s.logger.Warn("Failed to render closing tally", "error", err)
	}
	if s.onClose != nil {
		s.onClose()
	}
	s.logger.Info("Table closed")
}

// fatal refunds every unsettled stake, notifies the room once, and tears the
// session down. It must never drop staked funds, even when the root cause is
// unrecoverable.
func (s *Session) fatal(ctx context.Context, cause error) {
	if s.closed {
		return
	}
	s.logger.Error("Fatal session error, refunding staked bets", "error", cause)
	for _, seat := range s.seats {
		if seat.settled {
			continue
		}
		refund := seat.Bet + seat.InsuranceAmount
		if refund > 0 {
			if err := s.store.AdjustBalance(ctx, s.roomID, seat.PlayerID, refund); err != nil {
				s.logger.Error("Refund failed", "player", seat.PlayerID, "amount", refund, "error", err)
			}
		}
		seat.settled = true
	}
	s.stage = StageClosed
	s.closed = true
	s.cancelTimer()
	notice := "⚠ BLACKJACK: the table hit an internal error. All staked bets have been refunded."
	if err := s.channel.Render(ctx, s.roomID, s.messageID, notice, nil); err != nil {
		s.logger.Warn("Failed to deliver teardown notice", "error", err)
	}
	if s.onClose != nil {
		s.onClose()
	}
}

// pauseFor freezes the session after a notification failure and schedules
// the resume.
func (s *Session) pauseFor(err error) {
	delay := s.rules.ResumeDelay
	var rl *notify.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		delay = rl.RetryAfter
	}
	s.paused = true
	s.logger.Warn("Notification channel failed, pausing table", "stage", s.stage, "resume_in", delay, "error", err)
	s.armTimer(delay, s.resume)
}

// resume re-enters the stage that was active when the pause hit: re-announce
// with a resumed banner and re-arm that stage's own timer.
func (s *Session) resume(ctx context.Context) {
	s.paused = false
	s.banner = "▶ table resumed"
	s.lastText, s.lastCtls = "", ""
	s.logger.Info("Resuming table", "stage", s.stage)
	s.render(ctx)
	if s.paused {
		// The resume render failed too; a new pause window is already armed.
		return
	}
	s.armStageTimer()
}

// render emits the current snapshot unless it is byte-identical to the last
// one sent. A channel failure flips the session into the paused state.
func (s *Session) render(ctx context.Context) {
	text, controls := s.snapshot()
	ctls := flattenControls(controls)
	if text == s.lastText && ctls == s.lastCtls {
		return
	}
	if err := s.channel.Render(ctx, s.roomID, s.messageID, text, controls); err != nil {
		s.pauseFor(err)
		return
	}
	s.lastText = text
	s.lastCtls = ctls
}

// mustDraw pops a card from the deck. The deck is rebuilt every round and a
// round can never consume all 52 cards, so an empty pop is a corrupted
// session.
func (s *Session) mustDraw() cards.Card {
	c, ok := s.deck.Pop()
	if !ok {
		panic("blackjack: deck exhausted mid-round")
	}
	return c
}

// guard recovers a panic out of a session entry point and converts it into
// the fatal teardown path.
func (s *Session) guard(ctx context.Context) {
	if r := recover(); r != nil {
		s.fatal(ctx, fmt.Errorf("panic: %v", r))
	}
}

func (s *Session) activeSeat() *Seat {
	if s.active < 0 || s.active >= len(s.seats) {
		return nil
	}
	return s.seats[s.active]
}

func (s *Session) seatForPlayer(playerID string) *Seat {
	for _, seat := range s.seats {
		if seat.PlayerID == playerID {
			return seat
		}
	}
	return nil
}
