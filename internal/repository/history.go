package repository

import (
	"slices"
	"sync"
	"time"

	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultHistoryCap is the number of turns kept per session when none is configured.
const DefaultHistoryCap = 10

// HistoryConfig bounds the in-memory history. MaxSessions <= 0 and
// SessionTTL <= 0 each mean unbounded.
type HistoryConfig struct {
	Cap         int
	MaxSessions int
	SessionTTL  time.Duration
}

// HistoryStore keeps the most recent turns of every session in memory.
// Sessions live until evicted by MaxSessions or SessionTTL, or the process exits.
type HistoryStore struct {
	mu       sync.Mutex
	cap      int
	sessions *expirable.LRU[string, []domain.ConversationTurn]
}

func NewHistoryStore(cfg HistoryConfig) *HistoryStore {
	if cfg.Cap <= 0 {
		cfg.Cap = DefaultHistoryCap
	}
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	return &HistoryStore{
		cap:      cfg.Cap,
		sessions: expirable.NewLRU[string, []domain.ConversationTurn](maxSessions, nil, cfg.SessionTTL),
	}
}

// Append adds a turn and drops the oldest turns beyond the cap.
func (s *HistoryStore) Append(sessionID string, turn domain.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _ := s.sessions.Get(sessionID)

	start := 0
	if len(existing)+1 > s.cap {
		start = len(existing) + 1 - s.cap
	}

	// Build a new slice so readers holding an earlier copy are unaffected.
	next := make([]domain.ConversationTurn, 0, min(len(existing)+1, s.cap))
	if start < len(existing) {
		next = append(next, existing[start:]...)
	}
	next = append(next, turn)

	s.sessions.Add(sessionID, next)
}

// Get returns a copy of the session's turns, oldest first. Unknown sessions
// yield an empty slice.
func (s *HistoryStore) Get(sessionID string) []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions.Get(sessionID)
	if !ok {
		return []domain.ConversationTurn{}
	}
	return slices.Clone(turns)
}

// Delete forgets a session.
func (s *HistoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(sessionID)
}

// Sessions returns the number of tracked sessions.
func (s *HistoryStore) Sessions() int {
	return s.sessions.Len()
}

// Cap returns the per-session turn limit.
func (s *HistoryStore) Cap() int {
	return s.cap
}
