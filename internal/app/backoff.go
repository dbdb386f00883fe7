package app

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default retry configuration values.
const (
	DefaultSwitchRetries = 3
	DefaultRetryInitial  = 50 * time.Millisecond
	DefaultRetryMax      = time.Second
)

// newRetryPolicy returns an exponential backoff with ±20% jitter doubling
// from initial up to max.
func newRetryPolicy(initial, max time.Duration) *backoff.ExponentialBackOff {
	if initial <= 0 {
		initial = DefaultRetryInitial
	}
	if max < initial {
		max = initial
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}
