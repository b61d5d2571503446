package session

import (
	"sync"
	"time"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/prompt"
)

// Preferences are the per-user pipeline defaults set through bot commands.
type Preferences struct {
	Method detect.Method
	Size   prompt.Size
}

type Session struct {
	UserID       int64
	Username     string
	Prefs        Preferences
	LastActivity time.Time
}

type Options struct {
	Defaults Preferences
	// IdleTTL drops sessions untouched for longer. Zero means 24h.
	IdleTTL time.Duration
	Now     func() time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	defaults Preferences
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	defaults := opts.Defaults
	if defaults.Method == "" {
		defaults.Method = detect.MethodBasic
	}
	if defaults.Size == "" {
		defaults.Size = prompt.SizeConcise
	}

	return &Store{
		sessions: make(map[int64]*Session),
		defaults: defaults,
		ttl:      ttl,
		now:      now,
	}
}

func (s *Store) Preferences(userID int64, username string) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.touchLocked(userID, username).Prefs
}

func (s *Store) SetMethod(userID int64, username string, method detect.Method) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked(userID, username).Prefs.Method = method
}

func (s *Store) SetSize(userID int64, username string, size prompt.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked(userID, username).Prefs.Size = size
}

// Reset restores the defaults for a user.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		sess.Prefs = s.defaults
		sess.LastActivity = s.now()
	}
}

// Prune removes idle sessions and reports how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) touchLocked(userID int64, username string) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{
			UserID:   userID,
			Username: username,
			Prefs:    s.defaults,
		}
		s.sessions[userID] = sess
	}
	if sess.Username == "" && username != "" {
		sess.Username = username
	}
	sess.LastActivity = s.now()
	return sess
}
