// Package messagequeue defines the event publishing port consumed by
// dashboards and alerting.
package messagequeue

import "context"

// Subjects for published events.
const (
	SubjectValidationCompleted = "validation.completed"
	SubjectReviewQueued        = "review.queued"
	SubjectReviewClaimed       = "review.claimed"
	SubjectReviewReleased      = "review.released"
	SubjectReviewCompleted     = "review.completed"
)

// Queue is the port interface for publishing events.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ValidationCompletedPayload announces a finalized validation result.
type ValidationCompletedPayload struct {
	ResultID      string  `json:"result_id"`
	FinalDecision string  `json:"final_decision"`
	ReviewStatus  string  `json:"review_status"`
	Confidence    float64 `json:"confidence"`
	ConsensusType string  `json:"consensus_type,omitempty"`
}

// ReviewEventPayload announces a review queue transition.
type ReviewEventPayload struct {
	EntryID            string `json:"entry_id"`
	ValidationResultID string `json:"validation_result_id"`
	Status             string `json:"status"`
	ValidatorID        string `json:"validator_id,omitempty"`
	Priority           int    `json:"priority"`
	Outcome            string `json:"outcome,omitempty"`
}
