package service

import "time"

// LockReason identifies which key tripped a lockout.
type LockReason string

const (
	// LockReasonIP means the per-IP failure budget was exhausted.
	LockReasonIP LockReason = "ip"
	// LockReasonUsername means the per-account failure budget was exhausted.
	LockReasonUsername LockReason = "username"
)

// LimitDecision is the outcome of a rate-limit check.
type LimitDecision struct {
	Allowed     bool
	LockedUntil time.Time
	Reason      LockReason
}

// LoginRateLimiter tracks failed authentication attempts per IP and per
// username over a sliding window and locks a key once the attempt budget is
// exhausted. State is in-process memory owned by an explicit component
// instance; all methods are safe for concurrent use.
type LoginRateLimiter interface {
	// Check evaluates both the ip and (if non-empty) username keys.
	// The first locked key wins.
	Check(ip, username string) LimitDecision

	// RecordFailure appends a failure to both keys and returns the latest
	// lock expiry across them, with locked=false when neither key is locked.
	RecordFailure(ip, username string) (lockedUntil time.Time, locked bool)

	// RecordSuccess clears both keys entirely.
	RecordSuccess(ip, username string)

	// Reset clears all limiter state.
	Reset()
}
