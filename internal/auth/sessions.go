package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	userID    string
	expiresAt time.Time
}

// SessionStore keeps sessions in memory, keyed by the SHA-256 of the raw
// token so a heap dump never exposes usable credentials. Sessions do not
// survive a restart; clients simply log in again.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]session),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Issue creates a session for the user and returns the raw token.
// Any previous session for the same user is revoked.
func (s *SessionStore) Issue(userID string) string {
	token := uuid.NewString() + uuid.NewString()
	hash := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	for h, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, h)
		}
	}
	s.sessions[hash] = session{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return token
}

// Resolve returns the user ID for a raw token. Sessions within a third
// of expiry are renewed for a full TTL.
func (s *SessionStore) Resolve(token string) (string, bool) {
	hash := hashToken(token)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[hash]
	if !ok {
		return "", false
	}
	if now.After(sess.expiresAt) {
		delete(s.sessions, hash)
		return "", false
	}
	if sess.expiresAt.Sub(now) < s.ttl/3 {
		sess.expiresAt = now.Add(s.ttl)
		s.sessions[hash] = sess
	}
	return sess.userID, true
}

// Revoke deletes the session for a raw token, if any.
func (s *SessionStore) Revoke(token string) {
	hash := hashToken(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, hash)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartCleanup begins periodic removal of expired sessions.
func (s *SessionStore) StartCleanup(interval time.Duration) {
	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

func (s *SessionStore) cleanExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, hash)
		}
	}
}

// StopCleanup stops the cleanup goroutine started by StartCleanup.
func (s *SessionStore) StopCleanup() {
	close(s.stopCleanup)
	<-s.cleanupDone
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
