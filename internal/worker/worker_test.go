package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunaso/grievance-service/internal/ai"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/events"
	"github.com/gunaso/grievance-service/internal/observability"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

var defaultPolicy = Policy{Initial: time.Second, Multiplier: 2, Max: 60 * time.Second, Deadline: 300 * time.Second}

// fakeClock advances only when the retrier sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func fakeRetrier(policy Policy) (*Retrier, *fakeClock) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	return &Retrier{policy: policy, now: clock.Now, sleep: clock.Sleep}, clock
}

func TestPolicyDelays(t *testing.T) {
	var got []time.Duration
	for i := 1; i <= 8; i++ {
		got = append(got, defaultPolicy.Delay(i))
	}
	want := []time.Duration{1, 2, 4, 8, 16, 32, 60, 60}
	for i := range want {
		want[i] *= time.Second
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 10, defaultPolicy.MaxAttempts())
}

func TestRetrierStopsAtDeadline(t *testing.T) {
	r, clock := fakeRetrier(defaultPolicy)
	calls := 0

	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("unreachable")
	})

	assert.ErrorIs(t, err, ErrDeadlineExceeded)
	assert.Equal(t, calls, attempts)
	assert.Equal(t, defaultPolicy.MaxAttempts(), calls)
	assert.LessOrEqual(t, clock.Now().Sub(time.Unix(0, 0)), defaultPolicy.Deadline)
}

func TestRetrierPermanentErrorStopsImmediately(t *testing.T) {
	r, clock := fakeRetrier(defaultPolicy)
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		return Permanent(errors.New("gone"))
	})
	assert.Equal(t, 1, attempts)
	assert.True(t, IsPermanent(err))
	assert.Empty(t, clock.sleeps)
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	r, clock := fakeRetrier(defaultPolicy)
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.sleeps)
}

type stubEnricher struct {
	configured bool
	calls      atomic.Int32
	fn         func(call int32) (domain.Enrichment, error)
}

func (s *stubEnricher) Configured() bool { return s.configured }

func (s *stubEnricher) Enrich(context.Context, string) (domain.Enrichment, error) {
	n := s.calls.Add(1)
	return s.fn(n)
}

func newTestPool(enricher Enricher, metrics *observability.Metrics) *EnrichmentPool {
	pool := NewEnrichmentPool(EnrichmentPoolConfig{
		Queue:    NewMemoryQueue(8),
		Enricher: enricher,
		Policy:   defaultPolicy,
		Metrics:  metrics,
	})
	pool.retrier, _ = fakeRetrier(defaultPolicy)
	return pool
}

func TestProcessShortCircuitsWhenUnconfigured(t *testing.T) {
	enricher := &stubEnricher{fn: func(int32) (domain.Enrichment, error) {
		t.Fatal("enricher must not be called")
		return domain.Enrichment{}, nil
	}}
	metrics := observability.NewMetrics()
	pool := newTestPool(enricher, metrics)

	assert.Equal(t, OutcomeSkipped, pool.Process(context.Background(), "t1"))
	assert.Equal(t, OutcomeSkipped, pool.Process(context.Background(), "t2"))
	assert.Equal(t, int32(0), enricher.calls.Load())
	assert.Equal(t, int64(2), metrics.Snapshot()["enrichments"][OutcomeSkipped])
}

func TestProcessNotFoundIsNotRetried(t *testing.T) {
	enricher := &stubEnricher{configured: true, fn: func(int32) (domain.Enrichment, error) {
		return domain.Enrichment{}, apperrors.NewNotFound("complaint", nil)
	}}
	pool := newTestPool(enricher, nil)

	assert.Equal(t, OutcomeNotFound, pool.Process(context.Background(), "missing"))
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestProcessUnreachableClassifierIsBounded(t *testing.T) {
	enricher := &stubEnricher{configured: true, fn: func(int32) (domain.Enrichment, error) {
		return domain.Enrichment{}, errors.New("dial tcp: connection refused")
	}}
	pool := newTestPool(enricher, nil)

	assert.Equal(t, OutcomeExhausted, pool.Process(context.Background(), "t1"))
	assert.Equal(t, int32(defaultPolicy.MaxAttempts()), enricher.calls.Load())
}

func TestProcessMalformedResponseIsRetried(t *testing.T) {
	enricher := &stubEnricher{configured: true, fn: func(call int32) (domain.Enrichment, error) {
		if call == 1 {
			return domain.Enrichment{}, ai.ErrMalformedResponse
		}
		return domain.Enrichment{Category: "Other", Priority: domain.PriorityLow}, nil
	}}
	pool := newTestPool(enricher, nil)

	assert.Equal(t, OutcomeSucceeded, pool.Process(context.Background(), "t1"))
	assert.Equal(t, int32(2), enricher.calls.Load())
}

func TestProcessRejectedIsPermanent(t *testing.T) {
	enricher := &stubEnricher{configured: true, fn: func(int32) (domain.Enrichment, error) {
		return domain.Enrichment{}, ai.ErrRejected
	}}
	pool := newTestPool(enricher, nil)

	assert.Equal(t, OutcomeRejected, pool.Process(context.Background(), "t1"))
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestCreatedEventEnqueuesAndWorkerConsumes(t *testing.T) {
	done := make(chan string, 1)
	enricher := &stubEnricher{configured: true, fn: func(int32) (domain.Enrichment, error) {
		return domain.Enrichment{Category: "Other", Priority: domain.PriorityLow}, nil
	}}
	queue := NewMemoryQueue(8)
	pool := NewEnrichmentPool(EnrichmentPoolConfig{Queue: queue, Enricher: enricher, Policy: defaultPolicy, Workers: 1})

	dispatcher := events.NewInMemoryDispatcher(nil)
	pool.RegisterHandlers(dispatcher)
	dispatcher.Subscribe(events.EventComplaintCreated, func(_ context.Context, e events.Event) error {
		done <- e.TrackingID
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventComplaintCreated, TrackingID: "abc"}))
	assert.Equal(t, "abc", <-done)

	assert.Eventually(t, func() bool { return enricher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	pool.Wait()
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), "a"))
	assert.ErrorIs(t, q.Enqueue(context.Background(), "b"), ErrQueueFull)

	id, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestNotificationRunnerRunsAndDrains(t *testing.T) {
	runner := NewNotificationRunner(2, 8, time.Second, nil)
	runner.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		runner.Submit("test", func(ctx context.Context) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			ran.Add(1)
		})
	}
	runner.Submit("panics", func(context.Context) { panic("boom") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runner.Stop(ctx)
	assert.Equal(t, int32(5), ran.Load())

	assert.NotPanics(t, func() { runner.Submit("late", func(context.Context) {}) })
}
