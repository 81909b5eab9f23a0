package api

import (
	"sync"
	"time"

	"github.com/piligrim/bookshelf/internal/view"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// Session is the server-side state of one browser
type Session struct {
	Store *wishlist.Store

	mu       sync.Mutex
	list     *view.ListView
	newList  func(*wishlist.Store) *view.ListView
	lastSeen time.Time
	liveSeq  int64
}

// List returns the live-search view of the session, creating it on first use
func (s *Session) List() *view.ListView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list == nil {
		s.list = s.newList(s.Store)
	}
	return s.list
}

// acceptLive reports whether a live-search keystroke numbered seq is newer
// than every one seen so far. Requests without a number are always accepted.
func (s *Session) acceptLive(seq int64) bool {
	if seq <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.liveSeq {
		return false
	}
	s.liveSeq = seq
	return true
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list != nil {
		s.list.Close()
	}
}

// Sessions keeps one Session per visitor; idle entries are dropped on access
type Sessions struct {
	ttl     time.Duration
	open    func(visitorID string) *wishlist.Store
	newList func(*wishlist.Store) *view.ListView
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*Session
}

// NewSessions creates a registry. open rehydrates a visitor's wishlist.
func NewSessions(ttl time.Duration, open func(visitorID string) *wishlist.Store, newList func(*wishlist.Store) *view.ListView) *Sessions {
	return &Sessions{
		ttl:     ttl,
		open:    open,
		newList: newList,
		now:     time.Now,
		items:   make(map[string]*Session),
	}
}

// Get returns the session of visitorID, creating it when needed
func (s *Sessions) Get(visitorID string) *Session {
	s.mu.Lock()
	now := s.now()
	var expired []*Session
	for id, sess := range s.items {
		if id != visitorID && s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl {
			expired = append(expired, sess)
			delete(s.items, id)
		}
	}

	sess, ok := s.items[visitorID]
	if ok && s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl {
		expired = append(expired, sess)
		ok = false
	}
	if !ok {
		sess = &Session{Store: s.open(visitorID), newList: s.newList}
		s.items[visitorID] = sess
	}
	sess.lastSeen = now
	s.mu.Unlock()

	for _, e := range expired {
		e.close()
	}
	return sess
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
