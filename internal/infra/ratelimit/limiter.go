// Package ratelimit implements in-process login throttling. Failure history
// is process-local by design: each instance enforces its own budget, and a
// restart clears all state.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"sitewatch/internal/domain/service"
)

const unknownKey = "unknown"

// Config bounds the failure budget for a limiter instance.
type Config struct {
	// MaxAttempts is the number of failures tolerated inside the window
	// before a key locks.
	MaxAttempts int
	// Window is the sliding span over which failures are counted.
	Window time.Duration
	// Lockout is the fixed duration a key stays locked once tripped.
	Lockout time.Duration
}

type record struct {
	failures    []time.Time
	lockedUntil time.Time
}

type limiter struct {
	mu      sync.Mutex
	cfg     Config
	clock   service.Clock
	records map[string]*record
}

// New creates a login rate limiter with its own isolated state.
func New(cfg Config, clock service.Clock) service.LoginRateLimiter {
	return &limiter{
		cfg:     cfg,
		clock:   clock,
		records: make(map[string]*record),
	}
}

func ipKey(ip string) string {
	if ip == "" {
		ip = unknownKey
	}

	return "ip:" + ip
}

func userKey(username string) string {
	return "user:" + strings.ToLower(username)
}

func (l *limiter) Check(ip, username string) service.LimitDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	if until, locked := l.lockedLocked(ipKey(ip), now); locked {
		return service.LimitDecision{LockedUntil: until, Reason: service.LockReasonIP}
	}
	if username != "" {
		if until, locked := l.lockedLocked(userKey(username), now); locked {
			return service.LimitDecision{LockedUntil: until, Reason: service.LockReasonUsername}
		}
	}

	return service.LimitDecision{Allowed: true}
}

func (l *limiter) RecordFailure(ip, username string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	latest, locked := l.failLocked(ipKey(ip), now)
	if username != "" {
		if until, userLocked := l.failLocked(userKey(username), now); userLocked {
			if !locked || until.After(latest) {
				latest = until
			}
			locked = true
		}
	}

	return latest, locked
}

func (l *limiter) RecordSuccess(ip, username string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, ipKey(ip))
	if username != "" {
		delete(l.records, userKey(username))
	}
}

func (l *limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make(map[string]*record)
}

// lockedLocked reports whether the key is currently locked, pruning the
// entry entirely once both the lock and the failure window have lapsed.
func (l *limiter) lockedLocked(key string, now time.Time) (time.Time, bool) {
	rec, ok := l.records[key]
	if !ok {
		return time.Time{}, false
	}

	if rec.lockedUntil.After(now) {
		return rec.lockedUntil, true
	}

	rec.failures = pruneBefore(rec.failures, now.Add(-l.cfg.Window))
	if len(rec.failures) == 0 && !rec.lockedUntil.After(now) {
		delete(l.records, key)
	}

	return time.Time{}, false
}

// failLocked appends a failure and trips the lock when the in-window count
// reaches the budget. An existing lock is never shortened.
func (l *limiter) failLocked(key string, now time.Time) (time.Time, bool) {
	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}

	rec.failures = append(pruneBefore(rec.failures, now.Add(-l.cfg.Window)), now)

	if len(rec.failures) >= l.cfg.MaxAttempts {
		until := now.Add(l.cfg.Lockout)
		if until.After(rec.lockedUntil) {
			rec.lockedUntil = until
		}
	}

	if rec.lockedUntil.After(now) {
		return rec.lockedUntil, true
	}

	return time.Time{}, false
}

func pruneBefore(failures []time.Time, cutoff time.Time) []time.Time {
	kept := failures[:0]
	for _, t := range failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	return kept
}
