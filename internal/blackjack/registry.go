package blackjack

import (
	"context"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/retinskiymp/dodebbot/internal/ledger"
	"github.com/retinskiymp/dodebbot/internal/notify"
	"github.com/retinskiymp/dodebbot/internal/randutil"
)

// Deps bundles everything a session needs from the outside world.
type Deps struct {
	Store   ledger.Store
	Channel notify.Channel
	Clock   quartz.Clock
	Logger  *log.Logger
	Rules   Rules
	Seed    int64
}

// Registry owns the active sessions, one per room. It is the only structure
// shared across rooms and supports concurrent start/lookup/removal.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	rng      *rand.Rand
	msgSeq   int64
	logger   *log.Logger
}

// NewRegistry creates a session registry. A zero Seed seeds sessions
// deterministically from it all the same; callers wanting varied decks pass
// a varied seed.
func NewRegistry(deps Deps) *Registry {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
		rng:      randutil.New(deps.Seed),
		logger:   deps.Logger.WithPrefix("registry"),
	}
}

// Start opens a new table in the room. It fails with ErrSessionExists when
// the room already has one.
func (r *Registry) Start(ctx context.Context, roomID string) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[roomID]; ok {
		r.mu.Unlock()
		return nil, ErrSessionExists
	}
	r.msgSeq++
	sessionRNG := randutil.New(int64(r.rng.Uint64()))
	s := newSession(roomID, r.msgSeq, r.deps, sessionRNG, func() { r.remove(roomID) })
	r.sessions[roomID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("Session started", "room", roomID, "active", total)
	s.start(ctx)
	return s, nil
}

// Get returns the session for a room, if any.
func (r *Registry) Get(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) remove(roomID string) {
	r.mu.Lock()
	delete(r.sessions, roomID)
	total := len(r.sessions)
	r.mu.Unlock()
	r.logger.Info("Session removed", "room", roomID, "active", total)
}
