package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxcheck/voxcheck/internal/adapter/otel"
	"github.com/voxcheck/voxcheck/internal/config"
	"github.com/voxcheck/voxcheck/internal/domain"
	"github.com/voxcheck/voxcheck/internal/domain/queue"
	"github.com/voxcheck/voxcheck/internal/port/cache"
	"github.com/voxcheck/voxcheck/internal/port/database"
	"github.com/voxcheck/voxcheck/internal/port/messagequeue"
)

const statsCacheKey = "queue:stats"

// QueueService manages the human review queue: enqueueing flagged results,
// exclusive claiming, release/complete transitions and health statistics.
type QueueService struct {
	store   database.Store
	mq      messagequeue.Queue
	cache   cache.Cache
	cfg     config.Queue
	metrics *otel.Metrics
}

// NewQueueService creates a QueueService.
func NewQueueService(store database.Store, mq messagequeue.Queue, c cache.Cache, cfg config.Queue) *QueueService {
	return &QueueService{store: store, mq: mq, cache: c, cfg: cfg}
}

// SetMetrics attaches metric instruments. Nil metrics are skipped.
func (s *QueueService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Enqueue adds a validation result to the review queue. A result with an
// active (pending or claimed) entry yields domain.ErrDuplicateEntry.
func (s *QueueService) Enqueue(ctx context.Context, validationResultID string, priority int, language string) (*queue.Entry, error) {
	if validationResultID == "" {
		return nil, fmt.Errorf("%w: validation result id is required", domain.ErrInvalidInput)
	}

	e := &queue.Entry{
		ID:                 uuid.NewString(),
		ValidationResultID: validationResultID,
		Priority:           priority,
		Language:           language,
	}
	if err := s.store.EnqueueReview(ctx, e); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReviewsQueued.Add(ctx, 1)
	}
	s.publishReviewEvent(ctx, messagequeue.SubjectReviewQueued, e)
	return e, nil
}

// Claim hands the highest-priority pending entry to validatorID, oldest first
// within a priority. language optionally filters candidates. Returns
// (nil, nil) when the queue has no eligible entry.
func (s *QueueService) Claim(ctx context.Context, validatorID, language string) (*queue.Entry, error) {
	if validatorID == "" {
		return nil, fmt.Errorf("%w: validator id is required", domain.ErrInvalidInput)
	}

	e, err := s.store.ClaimNextReview(ctx, validatorID, language)
	if err != nil || e == nil {
		return nil, err
	}

	slog.Info("review claimed",
		"entry_id", e.ID, "validator_id", validatorID, "priority", e.Priority)

	if s.metrics != nil {
		s.metrics.ReviewsClaimed.Add(ctx, 1)
		if e.ClaimedAt != nil {
			s.metrics.TimeToClaim.Record(ctx, e.ClaimedAt.Sub(e.CreatedAt).Seconds())
		}
	}
	s.publishReviewEvent(ctx, messagequeue.SubjectReviewClaimed, e)
	return e, nil
}

// Release returns a claimed entry to pending. Releasing an entry that is not
// claimed is an idempotent no-op (false, nil); releasing someone else's claim
// is domain.ErrNotOwner.
func (s *QueueService) Release(ctx context.Context, id, validatorID string) (bool, error) {
	e, err := s.store.ReleaseReview(ctx, id, validatorID)
	if err != nil || e == nil {
		return false, err
	}

	slog.Info("review released", "entry_id", e.ID, "validator_id", validatorID)
	s.publishReviewEvent(ctx, messagequeue.SubjectReviewReleased, e)
	return true, nil
}

// Complete finishes a claimed review with the validator's verdict and
// attaches the adjudication to the underlying validation result. Only the
// claim holder may complete.
func (s *QueueService) Complete(ctx context.Context, id, validatorID, outcome string) (*queue.Entry, error) {
	switch outcome {
	case "pass", "fail":
	default:
		return nil, fmt.Errorf("%w: outcome must be pass or fail, got %q", domain.ErrInvalidInput, outcome)
	}

	e, err := s.store.CompleteReview(ctx, id, validatorID, outcome)
	if err != nil {
		return nil, err
	}

	if err := s.store.AttachAdjudication(ctx, e.ValidationResultID, outcome, validatorID); err != nil {
		slog.Error("failed to attach adjudication",
			"entry_id", e.ID, "result_id", e.ValidationResultID, "error", err)
	}

	slog.Info("review completed",
		"entry_id", e.ID, "validator_id", validatorID, "outcome", outcome)

	if s.metrics != nil {
		s.metrics.ReviewsCompleted.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	s.publishReviewEvent(ctx, messagequeue.SubjectReviewCompleted, e)
	return e, nil
}

// Get returns one queue entry by ID.
func (s *QueueService) Get(ctx context.Context, id string) (*queue.Entry, error) {
	return s.store.GetQueueEntry(ctx, id)
}

// List returns entries filtered by status (empty status means all), highest
// priority first.
func (s *QueueService) List(ctx context.Context, status queue.Status, limit int) ([]queue.Entry, error) {
	return s.store.ListQueueEntries(ctx, status, limit)
}

// Stats returns the queue health snapshot: per-status depth, trailing
// throughput windows and SLA means. Snapshots are cached briefly; callers
// tolerate staleness within the TTL.
func (s *QueueService) Stats(ctx context.Context) (*queue.Stats, error) {
	if data, ok, _ := s.cache.Get(ctx, statsCacheKey); ok {
		var cached queue.Stats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	depth, err := s.store.CountQueueByStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var tp queue.Throughput
	if tp.LastHour, err = s.store.CountCompletedSince(ctx, now.Add(-time.Hour)); err != nil {
		return nil, err
	}
	if tp.LastDay, err = s.store.CountCompletedSince(ctx, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	if tp.LastWeek, err = s.store.CountCompletedSince(ctx, now.Add(-7*24*time.Hour)); err != nil {
		return nil, err
	}
	tp.PerHour = float64(tp.LastWeek) / (7 * 24)

	sla, err := s.store.QueueSLA(ctx)
	if err != nil {
		return nil, err
	}

	stats := &queue.Stats{Depth: depth, Throughput: tp, SLA: sla}

	if data, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, statsCacheKey, data, s.cfg.StatsCacheTTL)
	}
	return stats, nil
}

// SweepStale returns timed-out claims to pending and expires pending entries
// past the pending timeout.
func (s *QueueService) SweepStale(ctx context.Context) (released, expired int, err error) {
	now := time.Now().UTC()

	released, err = s.store.ReleaseStaleClaims(ctx, now.Add(-s.cfg.ClaimTimeout))
	if err != nil {
		return 0, 0, fmt.Errorf("sweep stale claims: %w", err)
	}

	expired, err = s.store.ExpirePending(ctx, now.Add(-s.cfg.PendingTimeout))
	if err != nil {
		return released, 0, fmt.Errorf("sweep expired pending: %w", err)
	}

	if released > 0 || expired > 0 {
		slog.Info("queue sweep", "released", released, "expired", expired)
	}
	return released, expired, nil
}

// RunSweeper periodically sweeps stale claims until ctx is canceled.
func (s *QueueService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.SweepStale(ctx); err != nil {
				slog.Error("queue sweep failed", "error", err)
			}
		}
	}
}

func (s *QueueService) publishReviewEvent(ctx context.Context, subject string, e *queue.Entry) {
	if s.mq == nil {
		return
	}
	payload := messagequeue.ReviewEventPayload{
		EntryID:            e.ID,
		ValidationResultID: e.ValidationResultID,
		Status:             string(e.Status),
		ValidatorID:        e.ClaimedBy,
		Priority:           e.Priority,
		Outcome:            e.Outcome,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.mq.Publish(ctx, subject, data); err != nil {
		slog.Warn("failed to publish review event", "subject", subject, "error", err)
	}
}
