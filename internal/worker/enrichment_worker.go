package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/ai"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/events"
	"github.com/gunaso/grievance-service/internal/observability"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// Enrichment outcomes, also used as metric labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeExhausted = "exhausted"
)

// Enricher performs one enrichment attempt.
type Enricher interface {
	Configured() bool
	Enrich(ctx context.Context, trackingID string) (domain.Enrichment, error)
}

// EnrichmentPool consumes enrichment jobs with a fixed number of workers.
type EnrichmentPool struct {
	queue    Queue
	enricher Enricher
	retrier  *Retrier
	workers  int
	metrics  *observability.Metrics
	logger   *zap.Logger

	disabledOnce sync.Once
	wg           sync.WaitGroup
}

// EnrichmentPoolConfig bundles pool collaborators.
type EnrichmentPoolConfig struct {
	Queue    Queue
	Enricher Enricher
	Policy   Policy
	Workers  int
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewEnrichmentPool constructs the pool.
func NewEnrichmentPool(cfg EnrichmentPoolConfig) *EnrichmentPool {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &EnrichmentPool{
		queue:    cfg.Queue,
		enricher: cfg.Enricher,
		retrier:  NewRetrier(cfg.Policy),
		workers:  workers,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// RegisterHandlers enqueues every newly created complaint. Enqueue failures are logged only;
// the complaint itself is already committed.
func (p *EnrichmentPool) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventComplaintCreated, func(ctx context.Context, event events.Event) error {
		if err := p.queue.Enqueue(ctx, event.TrackingID); err != nil {
			p.logger.Error("enqueue enrichment job failed", zap.String("tracking_id", event.TrackingID), zap.Error(err))
			return err
		}
		return nil
	})
}

// Start launches the workers; they stop when ctx is done.
func (p *EnrichmentPool) Start(ctx context.Context) {
	if !p.enricher.Configured() {
		p.logDisabled()
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until all workers have returned.
func (p *EnrichmentPool) Wait() {
	p.wg.Wait()
}

func (p *EnrichmentPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))
	for {
		trackingID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("dequeue failed", zap.Error(err))
			if sleepContext(ctx, time.Second) != nil {
				return
			}
			continue
		}
		p.Process(ctx, trackingID)
	}
}

// Process runs the enrichment task for one complaint with retries and returns its outcome.
func (p *EnrichmentPool) Process(ctx context.Context, trackingID string) string {
	if !p.enricher.Configured() {
		p.logDisabled()
		p.metrics.RecordEnrichment(OutcomeSkipped)
		return OutcomeSkipped
	}

	logger := p.logger.With(zap.String("tracking_id", trackingID))
	var result domain.Enrichment
	attempts, err := p.retrier.Do(ctx, func(ctx context.Context) error {
		enrichment, err := p.enricher.Enrich(ctx, trackingID)
		if err == nil {
			result = enrichment
			return nil
		}
		if isPermanentEnrichmentError(err) {
			return Permanent(err)
		}
		logger.Warn("enrichment attempt failed", zap.Error(err))
		return err
	})

	outcome := OutcomeSucceeded
	switch {
	case err == nil:
		logger.Info("complaint enriched",
			zap.String("category", result.Category),
			zap.String("priority", string(result.Priority)),
			zap.Int("attempts", attempts))
	case apperrors.IsCode(err, "NOT_FOUND"):
		outcome = OutcomeNotFound
		logger.Warn("complaint not found; enrichment aborted")
	case errors.Is(err, ai.ErrNotConfigured):
		outcome = OutcomeSkipped
		p.logDisabled()
	case IsPermanent(err):
		outcome = OutcomeRejected
		logger.Error("enrichment rejected", zap.Error(err))
	default:
		outcome = OutcomeExhausted
		logger.Error("enrichment gave up", zap.Int("attempts", attempts), zap.Error(err))
	}
	p.metrics.RecordEnrichment(outcome)
	return outcome
}

func (p *EnrichmentPool) logDisabled() {
	p.disabledOnce.Do(func() {
		p.logger.Warn("GEMINI_API_KEY not set; AI enrichment disabled")
	})
}

func isPermanentEnrichmentError(err error) bool {
	return apperrors.IsCode(err, "NOT_FOUND") ||
		errors.Is(err, ai.ErrNotConfigured) ||
		errors.Is(err, ai.ErrRejected)
}
