package web

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Zachkp/portfolio/internal/theme"
)

// themeSession is the live theme state of one visitor: the store and the
// system signal it follows.
type themeSession struct {
	store  *theme.Store
	signal *theme.Broadcaster
}

// Sessions keeps one themeSession per visitor. Idle sessions expire and are
// closed on eviction, which releases their signal subscription; persisted
// choices survive in the visitor's storage.
type Sessions struct {
	mu         sync.Mutex
	cache      *expirable.LRU[string, *themeSession]
	storageFor func(visitorID string) theme.Storage
	logger     *log.Logger
}

func NewSessions(size int, ttl time.Duration, storageFor func(string) theme.Storage, logger *log.Logger) *Sessions {
	s := &Sessions{storageFor: storageFor, logger: logger}
	s.cache = expirable.NewLRU[string, *themeSession](size, func(id string, sess *themeSession) {
		sess.store.Close()
		s.logger.Debug("theme session closed", "visitor", id)
	}, ttl)
	return s
}

// Acquire returns the visitor's session, creating it on first use. A known
// system hint is applied before the store resolves, and on every later
// request, so a following store updates live.
func (s *Sessions) Acquire(visitorID string, hint theme.Mode, hasHint bool) *themeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.cache.Get(visitorID); ok {
		if hasHint {
			sess.signal.Set(hint)
		}
		// Re-adding refreshes the expiry without evicting.
		s.cache.Add(visitorID, sess)
		return sess
	}

	signal := theme.NewBroadcaster()
	if hasHint {
		signal.Set(hint)
	}
	var storage theme.Storage
	if s.storageFor != nil {
		storage = s.storageFor(visitorID)
	}
	sess := &themeSession{
		store:  theme.NewStore(storage, signal, theme.WithLogger(s.logger)),
		signal: signal,
	}
	s.cache.Add(visitorID, sess)
	return sess
}

// Drop closes and forgets the visitor's session, as if the page unloaded.
func (s *Sessions) Drop(visitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(visitorID)
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Close closes every live session.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}
