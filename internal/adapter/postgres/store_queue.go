package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voxcheck/voxcheck/internal/domain"
	"github.com/voxcheck/voxcheck/internal/domain/queue"
)

const queueColumns = `id, validation_result_id, priority, language, status,
	COALESCE(claimed_by, ''), outcome, created_at, claimed_at, completed_at`

// EnqueueReview inserts a pending entry. The partial unique index on active
// entries turns a double enqueue into domain.ErrDuplicateEntry.
func (s *Store) EnqueueReview(ctx context.Context, e *queue.Entry) error {
	e.Status = queue.StatusPending
	e.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO review_queue (id, validation_result_id, priority, language, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.ValidationResultID, e.Priority, e.Language, string(e.Status), e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("enqueue review for result %s: %w", e.ValidationResultID, domain.ErrDuplicateEntry)
		}
		return fmt.Errorf("enqueue review: %w", err)
	}
	return nil
}

func (s *Store) GetQueueEntry(ctx context.Context, id string) (*queue.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+queueColumns+` FROM review_queue WHERE id = $1`, id)

	e, err := scanQueueEntry(row)
	if err != nil {
		return nil, notFoundWrap(err, "get queue entry %s", id)
	}
	return e, nil
}

func (s *Store) ListQueueEntries(ctx context.Context, status queue.Status, limit int) ([]queue.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+queueColumns+`
		 FROM review_queue
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY priority DESC, created_at ASC
		 LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []queue.Entry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ClaimNextReview atomically claims the highest-priority pending entry.
// FOR UPDATE SKIP LOCKED guarantees that under concurrent claims each entry
// is handed to exactly one caller; losers simply skip to the next candidate
// or get nothing. Returns (nil, nil) when no eligible entry exists.
func (s *Store) ClaimNextReview(ctx context.Context, validatorID, language string) (*queue.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE review_queue
		 SET status = $1, claimed_by = $2, claimed_at = now()
		 WHERE id = (
		     SELECT id FROM review_queue
		     WHERE status = $3 AND ($4 = '' OR language = $4)
		     ORDER BY priority DESC, created_at ASC
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 RETURNING `+queueColumns,
		string(queue.StatusClaimed), validatorID, string(queue.StatusPending), language,
	)

	e, err := scanQueueEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim review: %w", err)
	}
	return e, nil
}

// ReleaseReview returns a claimed entry held by validatorID to pending and
// returns the updated row. Not claimed at all is an idempotent no-op
// (nil, nil); claimed by a different validator is domain.ErrNotOwner.
func (s *Store) ReleaseReview(ctx context.Context, id, validatorID string) (*queue.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE review_queue
		 SET status = $3, claimed_by = NULL, claimed_at = NULL
		 WHERE id = $1 AND status = $4 AND claimed_by = $2
		 RETURNING `+queueColumns,
		id, validatorID, string(queue.StatusPending), string(queue.StatusClaimed),
	)

	e, err := scanQueueEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.claimConflict(ctx, id, validatorID)
		}
		return nil, fmt.Errorf("release review %s: %w", id, err)
	}
	return e, nil
}

// CompleteReview transitions claimed -> completed, stamping completed_at and
// the adjudication outcome. Only the claim holder may complete.
func (s *Store) CompleteReview(ctx context.Context, id, validatorID, outcome string) (*queue.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE review_queue
		 SET status = $3, outcome = $4, completed_at = now()
		 WHERE id = $1 AND status = $5 AND claimed_by = $2
		 RETURNING `+queueColumns,
		id, validatorID, string(queue.StatusCompleted), outcome, string(queue.StatusClaimed),
	)

	e, err := scanQueueEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.completeConflict(ctx, id, validatorID)
		}
		return nil, fmt.Errorf("complete review %s: %w", id, err)
	}
	return e, nil
}

// claimConflict inspects an entry after a zero-row release to distinguish
// "not claimed" (no-op) from "claimed by someone else" (ErrNotOwner).
func (s *Store) claimConflict(ctx context.Context, id, validatorID string) error {
	e, err := s.GetQueueEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == queue.StatusClaimed && e.ClaimedBy != validatorID {
		return fmt.Errorf("release review %s: %w", id, domain.ErrNotOwner)
	}
	return nil
}

// completeConflict classifies a zero-row complete: wrong owner, wrong state,
// or missing entry.
func (s *Store) completeConflict(ctx context.Context, id, validatorID string) error {
	e, err := s.GetQueueEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == queue.StatusClaimed && e.ClaimedBy != validatorID {
		return fmt.Errorf("complete review %s: %w", id, domain.ErrNotOwner)
	}
	return fmt.Errorf("complete review %s in status %s: %w", id, e.Status, domain.ErrConflict)
}

// --- Statistics ---

func (s *Store) CountQueueByStatus(ctx context.Context) (map[queue.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM review_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count queue by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[queue.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[queue.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *Store) CountCompletedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM review_queue
		 WHERE status = $1 AND completed_at >= $2`,
		string(queue.StatusCompleted), since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed since: %w", err)
	}
	return n, nil
}

// QueueSLA computes mean time-to-claim and time-to-complete over entries
// that reached the relevant milestone. No samples yields zero durations.
func (s *Store) QueueSLA(ctx context.Context) (queue.SLA, error) {
	var (
		sla          queue.SLA
		claimSecs    float64
		completeSecs float64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT
		     COALESCE(AVG(EXTRACT(EPOCH FROM (claimed_at - created_at))) FILTER (WHERE claimed_at IS NOT NULL), 0),
		     COUNT(*) FILTER (WHERE claimed_at IS NOT NULL),
		     COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - claimed_at))) FILTER (WHERE completed_at IS NOT NULL AND claimed_at IS NOT NULL), 0),
		     COUNT(*) FILTER (WHERE completed_at IS NOT NULL AND claimed_at IS NOT NULL)
		 FROM review_queue`,
	).Scan(&claimSecs, &sla.ClaimSamples, &completeSecs, &sla.CompleteSamples)
	if err != nil {
		return queue.SLA{}, fmt.Errorf("queue sla: %w", err)
	}

	sla.MeanTimeToClaim = time.Duration(claimSecs * float64(time.Second))
	sla.MeanTimeToComplete = time.Duration(completeSecs * float64(time.Second))
	return sla, nil
}

// --- Sweep primitives ---

// ReleaseStaleClaims returns claims older than claimedBefore to pending.
func (s *Store) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE review_queue
		 SET status = $1, claimed_by = NULL, claimed_at = NULL
		 WHERE status = $2 AND claimed_at < $3`,
		string(queue.StatusPending), string(queue.StatusClaimed), claimedBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpirePending expires pending entries created before the cutoff.
func (s *Store) ExpirePending(ctx context.Context, createdBefore time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE review_queue
		 SET status = $1
		 WHERE status = $2 AND created_at < $3`,
		string(queue.StatusExpired), string(queue.StatusPending), createdBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("expire pending: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanQueueEntry(row scannable) (*queue.Entry, error) {
	var e queue.Entry
	err := row.Scan(
		&e.ID, &e.ValidationResultID, &e.Priority, &e.Language, &e.Status,
		&e.ClaimedBy, &e.Outcome, &e.CreatedAt, &e.ClaimedAt, &e.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
