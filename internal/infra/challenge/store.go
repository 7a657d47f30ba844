// Package challenge holds pending two-factor login challenges in process
// memory. A restart drops all pending challenges, forcing affected users to
// restart the login.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"sitewatch/internal/domain/service"
)

const tokenBytes = 32

type entry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type store struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   service.Clock
	pending map[string]entry
}

// New creates an in-memory challenge store with the given TTL.
func New(ttl time.Duration, clock service.Clock) service.ChallengeStore {
	return &store{
		ttl:     ttl,
		clock:   clock,
		pending: make(map[string]entry),
	}
}

func (s *store) Issue(userID uuid.UUID) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate challenge token")
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.pruneLocked(now)
	s.pending[token] = entry{userID: userID, expiresAt: now.Add(s.ttl)}

	return token, nil
}

func (s *store) Lookup(token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.pending[token]
	if !ok {
		return uuid.Nil, service.ErrChallengeNotFound
	}
	if !ent.expiresAt.After(s.clock.Now()) {
		delete(s.pending, token)

		return uuid.Nil, service.ErrChallengeExpired
	}

	return ent.userID, nil
}

func (s *store) Consume(token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.pending[token]
	if !ok {
		return uuid.Nil, service.ErrChallengeNotFound
	}
	delete(s.pending, token)

	if !ent.expiresAt.After(s.clock.Now()) {
		return uuid.Nil, service.ErrChallengeExpired
	}

	return ent.userID, nil
}

// pruneLocked drops expired entries. Called opportunistically on Issue so the
// map does not grow unbounded under abandoned logins.
func (s *store) pruneLocked(now time.Time) {
	for token, ent := range s.pending {
		if !ent.expiresAt.After(now) {
			delete(s.pending, token)
		}
	}
}
