package bot

import (
	"sync"
	"time"
)

// Sessions expire after this long without activity.
const sessionTTL = 30 * time.Minute

type session struct {
	lastQuery  string
	lastActive time.Time
}

// sessionStore keeps per-chat conversational state, currently only the last
// search query consumed by "back to search". Expired sessions are pruned
// lazily on write.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*session),
	}
}

// SetQuery remembers the chat's last search query.
func (s *sessionStore) SetQuery(chatID int64, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) > s.ttl {
			delete(s.sessions, id)
		}
	}
	s.sessions[chatID] = &session{lastQuery: query, lastActive: now}
}

// Query returns the chat's last search query, if one is remembered and has
// not expired.
func (s *sessionStore) Query(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return "", false
	}
	now := s.now()
	if now.Sub(sess.lastActive) > s.ttl {
		delete(s.sessions, chatID)
		return "", false
	}
	sess.lastActive = now
	return sess.lastQuery, true
}
