package session

import (
	"errors"
	"time"

	"github.com/allbin/serialterm/internal/transport"
)

// ErrInvalidTimeout is returned for a negative or zero timeout option
var ErrInvalidTimeout = errors.New("timeout must be positive")

type options struct {
	timeouts transport.Timeouts
	clock    func() time.Time
}

// Option is a functional option for configuring a Session
type Option func(*options) error

// WithReadTimeout sets the bounded read window
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		o.timeouts.Read = d
		return nil
	}
}

// WithWriteTimeout sets the bounded write window
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		o.timeouts.Write = d
		return nil
	}
}

// WithIdleDelay sets how long to wait after an idle read before polling
// again. Zero polls immediately.
func WithIdleDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return ErrInvalidTimeout
		}
		o.timeouts.Idle = d
		return nil
	}
}

// WithClock sets the time source used to stamp records
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		o.clock = clock
		return nil
	}
}
