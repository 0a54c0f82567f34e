package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gunaso/grievance-service/internal/config"
)

// ErrDeadlineExceeded is returned once the next backoff would pass the policy deadline.
var ErrDeadlineExceeded = errors.New("retry deadline exceeded")

// Policy is an exponential backoff bounded by a total wall-clock deadline.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Deadline   time.Duration
}

// PolicyFromConfig maps enrichment settings onto a Policy.
func PolicyFromConfig(cfg config.EnrichmentConfig) Policy {
	return Policy{
		Initial:    cfg.InitialDelay,
		Multiplier: cfg.Multiplier,
		Max:        cfg.MaxDelay,
		Deadline:   cfg.Deadline,
	}
}

// Delay is the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// MaxAttempts is the number of attempts that fit in the deadline when each attempt takes no time.
// Real runs make at most this many calls.
func (p Policy) MaxAttempts() int {
	if p.Initial <= 0 {
		return 1
	}
	attempts := 1
	var elapsed time.Duration
	for {
		elapsed += p.Delay(attempts)
		if elapsed > p.Deadline {
			return attempts
		}
		attempts++
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retrier runs a function under a Policy. now and sleep are swappable for tests.
type Retrier struct {
	policy Policy
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a Retrier on the wall clock.
func NewRetrier(policy Policy) *Retrier {
	return &Retrier{policy: policy, now: time.Now, sleep: sleepContext}
}

// Do calls fn until it succeeds, returns a permanent error, or the next delay would cross the
// deadline. It returns the number of calls made.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	start := r.now()
	if r.policy.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Deadline)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if IsPermanent(err) {
			return attempt, err
		}

		delay := r.policy.Delay(attempt)
		if r.now().Sub(start)+delay > r.policy.Deadline {
			return attempt, fmt.Errorf("%w after %d attempts: %v", ErrDeadlineExceeded, attempt, err)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return attempt, fmt.Errorf("%w after %d attempts: %v", ErrDeadlineExceeded, attempt, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
