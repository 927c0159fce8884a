// Package clock abstracts "now" so reminder scheduling and overdue checks can
// be tested at fixed instants.
package clock

import (
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystem() Clock {
	return SystemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
