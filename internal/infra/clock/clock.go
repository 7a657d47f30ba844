// Package clock provides the system clock implementation.
package clock

import (
	"time"

	"sitewatch/internal/domain/service"
)

type systemClock struct{}

// New returns a Clock backed by the wall clock.
func New() service.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}
