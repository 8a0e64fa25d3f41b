package admission

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// acceptBackoff wraps backoff.ExponentialBackOff configured for the
// binary-exponential accept backoff spec.md §4.10 describes: wait min
// after the first error, double on each repeated failure up to max,
// reset to min on success. Setting min==max disables doubling
// (single-delay mode), since every NextBackOff() call is then already
// clamped to the same value.
type acceptBackoff struct {
	b *backoff.ExponentialBackOff
}

func newAcceptBackoff(min, max time.Duration) *acceptBackoff {
	if min <= 0 {
		min = 10 * time.Millisecond
	}
	if max <= 0 || max < min {
		max = min
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min
	b.MaxInterval = max
	b.MaxElapsedTime = 0 // never give up
	b.RandomizationFactor = 0
	if min == max {
		b.Multiplier = 1
	} else {
		b.Multiplier = 2
	}
	b.Reset()
	return &acceptBackoff{b: b}
}

// Next returns how long to wait before retrying accept(2).
func (a *acceptBackoff) Next() time.Duration {
	d := a.b.NextBackOff()
	if d == backoff.Stop {
		return a.b.MaxInterval
	}
	return d
}

// Reset returns the wait back to min, called after a successful
// accept(2).
func (a *acceptBackoff) Reset() {
	a.b.Reset()
}
