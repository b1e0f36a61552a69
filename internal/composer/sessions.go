package composer

import (
	"context"
	"sync"
	"time"

	"github.com/tangled-dev/tangled/shared/domain"
)

// Sessions keeps one composer per browser session. A session is mounted
// on first access, remounted when the signed-in user changes and dropped
// after ttl without access. With maxEntries > 0 the least recently used session
// is evicted to make room for a new one.
type Sessions struct {
	mu         sync.Mutex
	entries    map[string]*session
	ttl        time.Duration
	maxEntries int
	factory    func() *Composer
}

type session struct {
	composer *Composer
	userID   domain.UserId
	timer    *time.Timer
	lastSeen time.Time
}

func NewSessions(ttl time.Duration, maxEntries int, factory func() *Composer) *Sessions {
	return &Sessions{
		entries:    make(map[string]*session),
		ttl:        ttl,
		maxEntries: maxEntries,
		factory:    factory,
	}
}

// Get returns the composer of session id, mounting a fresh one if needed.
func (s *Sessions) Get(ctx context.Context, id string, user *domain.User) *Composer {
	uid := ownerID(user)

	s.mu.Lock()
	if e, ok := s.entries[id]; ok && e.userID == uid {
		s.touch(id, e)
		s.mu.Unlock()
		return e.composer
	}
	s.mu.Unlock()

	// Mount may read the profile store; keep it outside the lock.
	c := s.factory()
	c.Mount(ctx, user)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		if e.userID == uid {
			s.touch(id, e)
			return e.composer
		}
		e.timer.Stop()
	} else if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	e := &session{composer: c, userID: uid}
	s.entries[id] = e
	s.touch(id, e)
	draftSessions.Set(float64(len(s.entries)))
	return c
}

// Peek returns the composer of session id without creating one.
func (s *Sessions) Peek(id string) (*Composer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.composer, true
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels all expiration timers
func (s *Sessions) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.timer.Stop()
	}
}

// evictOldest must be called with s.mu held
func (s *Sessions) evictOldest() {
	var oldestID string
	var oldest *session
	for id, e := range s.entries {
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return
	}
	oldest.timer.Stop()
	delete(s.entries, oldestID)
	draftSessionsEvicted.Inc()
}

// touch must be called with s.mu held
func (s *Sessions) touch(id string, e *session) {
	e.lastSeen = time.Now()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(s.ttl, func() {
		s.expire(id, e)
	})
}

func (s *Sessions) expire(id string, e *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a timer that fired while the session was being touched is stale
	if s.entries[id] == e && time.Since(e.lastSeen) >= s.ttl {
		delete(s.entries, id)
		draftSessions.Set(float64(len(s.entries)))
	}
}
