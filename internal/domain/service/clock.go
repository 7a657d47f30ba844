package service

import "time"

// Clock abstracts wall-clock reads so time-sensitive components (rate
// limiter, challenge store, token expiry checks) are deterministic in tests.
type Clock interface {
	Now() time.Time
}
