// Package database defines the persistence port for validation results and
// the review queue.
package database

import (
	"context"
	"time"

	"github.com/voxcheck/voxcheck/internal/domain/queue"
	"github.com/voxcheck/voxcheck/internal/domain/validation"
)

// Store is the port interface for database operations. Implementations must
// make ClaimNextReview exclusive: under concurrent claims exactly one caller
// receives a given entry.
type Store interface {
	// Validation results
	CreateValidationResult(ctx context.Context, res *validation.Result) error
	GetValidationResult(ctx context.Context, id string) (*validation.Result, error)
	ListValidationResults(ctx context.Context, reviewStatus validation.ReviewStatus, limit int) ([]validation.Result, error)
	// AttachAdjudication records the human outcome on a finalized result.
	// This is the only permitted post-finalize mutation.
	AttachAdjudication(ctx context.Context, id, outcome, validatorID string) error

	// Review queue
	EnqueueReview(ctx context.Context, e *queue.Entry) error
	GetQueueEntry(ctx context.Context, id string) (*queue.Entry, error)
	ListQueueEntries(ctx context.Context, status queue.Status, limit int) ([]queue.Entry, error)
	// ClaimNextReview atomically claims the highest-priority pending entry
	// (ties broken by earliest created_at) matching the optional language
	// filter. Returns (nil, nil) when no eligible entry exists.
	ClaimNextReview(ctx context.Context, validatorID, language string) (*queue.Entry, error)
	// ReleaseReview returns a claimed entry held by validatorID to pending
	// and returns the updated entry. Returns (nil, nil) when the entry is not
	// currently claimed, and domain.ErrNotOwner when it is claimed by someone
	// else.
	ReleaseReview(ctx context.Context, id, validatorID string) (*queue.Entry, error)
	CompleteReview(ctx context.Context, id, validatorID, outcome string) (*queue.Entry, error)

	// Statistics (relaxed, read-only snapshots)
	CountQueueByStatus(ctx context.Context) (map[queue.Status]int, error)
	CountCompletedSince(ctx context.Context, since time.Time) (int, error)
	QueueSLA(ctx context.Context) (queue.SLA, error)

	// Sweep primitives
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int, error)
	ExpirePending(ctx context.Context, createdBefore time.Time) (int, error)
}
