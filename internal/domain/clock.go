package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze run timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Run identifies one execution of the pipeline.
type Run struct {
	ID        string
	StartedAt time.Time
}

// NewRun stamps a new run with a random id and the current UTC time.
func NewRun() Run {
	return Run{ID: uuid.NewString(), StartedAt: clock.Now().UTC()}
}
