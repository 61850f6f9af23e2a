package throttle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options tune pacing and retry behaviour for a rate-limited vendor.
type Options struct {
	MinInterval time.Duration
	MaxAttempts int
	BackoffCap  time.Duration
}

// Limiter enforces a minimum spacing between consecutive outbound calls to
// one vendor and supplies the backoff schedule used after over-rate
// responses. A single Limiter is shared by every request hitting that
// vendor.
type Limiter struct {
	opts   Options
	pacer  *rate.Limiter
	logger zerolog.Logger
}

// New constructs a vendor throttle.
func New(opts Options, logger zerolog.Logger) *Limiter {
	if opts.MinInterval <= 0 {
		opts.MinInterval = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 15 * time.Second
	}

	return &Limiter{
		opts:   opts,
		pacer:  rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		logger: logger.With().Str("component", "throttle").Logger(),
	}
}

// Wait blocks until the minimum interval since the previous admitted call has
// elapsed, or until ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	reservation := l.pacer.Reserve()
	delay := reservation.Delay()
	if delay > 0 {
		l.logger.Debug().Dur("wait", delay).Msg("pacing outbound vendor call")
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MaxAttempts is the number of tries allowed before giving up on an
// over-rate vendor.
func (l *Limiter) MaxAttempts() int {
	return l.opts.MaxAttempts
}

// BackoffDelay returns min(MinInterval * 2^attempt, cap) for a retry attempt.
func (l *Limiter) BackoffDelay(attempt int) time.Duration {
	delay := l.opts.MinInterval
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= l.opts.BackoffCap {
			return l.opts.BackoffCap
		}
	}
	if delay > l.opts.BackoffCap {
		return l.opts.BackoffCap
	}
	return delay
}

// Backoff sleeps for the attempt's backoff delay, honouring ctx cancellation.
func (l *Limiter) Backoff(ctx context.Context, attempt int) error {
	delay := l.BackoffDelay(attempt)
	l.logger.Warn().Int("attempt", attempt).Dur("wait", delay).Msg("vendor over rate limit, backing off")
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
