package blackjack

import (
	"context"
	"io"
	"maps"
	rand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/retinskiymp/dodebbot/internal/cards"
	"github.com/retinskiymp/dodebbot/internal/ledger"
	"github.com/retinskiymp/dodebbot/internal/notify"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// memStore is an in-memory ledger.Store with the same atomicity contract as
// the sqlite one.
type memStore struct {
	mu         sync.Mutex
	start      int
	players    map[string]*ledger.Player
	adjusts    int
	failAdjust func(playerID string, delta int) error
}

func newMemStore(start int) *memStore {
	return &memStore{start: start, players: make(map[string]*ledger.Player)}
}

func storeKey(roomID, playerID string) string { return roomID + "/" + playerID }

func (m *memStore) get(roomID, playerID, name string) *ledger.Player {
	key := storeKey(roomID, playerID)
	p, ok := m.players[key]
	if !ok {
		p = &ledger.Player{RoomID: roomID, ID: playerID, Name: name, Balance: m.start, Items: make(map[string]int)}
		m.players[key] = p
	}
	if name != "" {
		p.Name = name
	}
	return p
}

func (m *memStore) GetOrCreatePlayer(ctx context.Context, roomID, playerID, name string) (*ledger.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(roomID, playerID, name)
	cp := *p
	cp.Items = maps.Clone(p.Items)
	return &cp, nil
}

func (m *memStore) AdjustBalance(ctx context.Context, roomID, playerID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdjust != nil {
		if err := m.failAdjust(playerID, delta); err != nil {
			return err
		}
	}
	p := m.get(roomID, playerID, "")
	if p.Balance+delta < 0 {
		return ledger.ErrInsufficientFunds
	}
	p.Balance += delta
	m.adjusts++
	return nil
}

func (m *memStore) HasItem(ctx context.Context, roomID, playerID, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(roomID, playerID, "").Items[itemID] >= qty, nil
}

func (m *memStore) ConsumeItem(ctx context.Context, roomID, playerID, itemID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(roomID, playerID, "")
	if p.Items[itemID]+delta < 0 {
		return ledger.ErrInsufficientItems
	}
	p.Items[itemID] += delta
	return nil
}

func (m *memStore) balance(roomID, playerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(roomID, playerID, "").Balance
}

func (m *memStore) grant(roomID, playerID, itemID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(roomID, playerID, "").Items[itemID] += qty
}

func (m *memStore) items(roomID, playerID, itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(roomID, playerID, "").Items[itemID]
}

func (m *memStore) adjustCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjusts
}

func (m *memStore) setFailAdjust(fn func(playerID string, delta int) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAdjust = fn
}

type renderCall struct {
	roomID    string
	messageID int64
	text      string
	controls  [][]notify.Control
}

// memChannel records renders and can be armed to fail upcoming ones.
type memChannel struct {
	mu       sync.Mutex
	calls    []renderCall
	failures []error
}

func (c *memChannel) Render(ctx context.Context, roomID string, messageID int64, text string, controls [][]notify.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) > 0 {
		err := c.failures[0]
		c.failures = c.failures[1:]
		return err
	}
	c.calls = append(c.calls, renderCall{roomID: roomID, messageID: messageID, text: text, controls: controls})
	return nil
}

func (c *memChannel) failNext(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, errs...)
}

func (c *memChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *memChannel) last() renderCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}

type tableOpt func(*tableConfig)

type tableConfig struct {
	start int
	rules Rules
}

func withStart(n int) tableOpt {
	return func(c *tableConfig) { c.start = n }
}

// table wires a session against the in-memory fakes and a mock clock.
type table struct {
	t        *testing.T
	ctx      context.Context
	clock    *quartz.Mock
	store    *memStore
	channel  *memChannel
	registry *Registry
	session  *Session
	rules    Rules
}

func newTable(t *testing.T, opts ...tableOpt) *table {
	t.Helper()
	cfg := tableConfig{start: 1000, rules: DefaultRules()}
	for _, o := range opts {
		o(&cfg)
	}
	store := newMemStore(cfg.start)
	channel := &memChannel{}
	clock := quartz.NewMock(t)
	reg := NewRegistry(Deps{
		Store:   store,
		Channel: channel,
		Clock:   clock,
		Logger:  testLogger(),
		Rules:   cfg.rules,
		Seed:    1,
	})
	ctx := context.Background()
	s, err := reg.Start(ctx, "room-1")
	require.NoError(t, err)
	return &table{
		t:        t,
		ctx:      ctx,
		clock:    clock,
		store:    store,
		channel:  channel,
		registry: reg,
		session:  s,
		rules:    cfg.rules,
	}
}

// stackNextDeal pins the next round's shoe so the first card listed is the
// first card dealt.
func (tb *table) stackNextDeal(cs ...cards.Card) {
	rev := make([]cards.Card, len(cs))
	for i, c := range cs {
		rev[len(cs)-1-i] = c
	}
	tb.session.mu.Lock()
	defer tb.session.mu.Unlock()
	tb.session.buildDeck = func(*rand.Rand) *cards.Deck {
		return cards.NewStackedDeck(rev...)
	}
}

func (tb *table) bet(playerID string, amount int) {
	tb.t.Helper()
	reply, err := tb.session.PlaceBet(tb.ctx, playerID, playerID, AmountSpec{Kind: BetFixed, Value: amount})
	require.NoError(tb.t, err)
	require.Contains(tb.t, reply, "accepted")
}

func (tb *table) advance(d time.Duration) {
	tb.t.Helper()
	tb.clock.Advance(d).MustWait(tb.ctx)
}

func card(suit cards.Suit, rank cards.Rank) cards.Card {
	return cards.NewCard(suit, rank)
}

func spade(rank cards.Rank) cards.Card { return card(cards.Spades, rank) }
func heart(rank cards.Rank) cards.Card { return card(cards.Hearts, rank) }
