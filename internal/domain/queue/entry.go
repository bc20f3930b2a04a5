// Package queue defines the human review queue entry model and its state
// machine: pending -> claimed -> completed, with expiry from either state.
package queue

import "time"

// Status is the lifecycle state of a queue entry. Entries are never deleted;
// terminal states preserve the audit history.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Entry is one item awaiting human review. ClaimedAt is set if and only if
// the entry has reached claimed or a later state, and at most one validator
// holds the claim at any time.
type Entry struct {
	ID                 string     `json:"id"`
	ValidationResultID string     `json:"validation_result_id"`
	Priority           int        `json:"priority"`
	Language           string     `json:"language,omitempty"`
	Status             Status     `json:"status"`
	ClaimedBy          string     `json:"claimed_by,omitempty"`
	Outcome            string     `json:"outcome,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ClaimedAt          *time.Time `json:"claimed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// ValidTransition reports whether a status change is allowed by the entry
// state machine.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusClaimed || to == StatusExpired
	case StatusClaimed:
		return to == StatusPending || to == StatusCompleted || to == StatusExpired
	default:
		return false
	}
}

// Active reports whether the entry still blocks a re-enqueue of the same
// validation result.
func (e *Entry) Active() bool {
	return e.Status == StatusPending || e.Status == StatusClaimed
}

// Throughput counts completions within trailing windows plus an
// average-per-hour rate over the longest window.
type Throughput struct {
	LastHour int     `json:"last_hour"`
	LastDay  int     `json:"last_day"`
	LastWeek int     `json:"last_week"`
	PerHour  float64 `json:"per_hour"`
}

// SLA holds mean time-to-claim and time-to-complete, each computed only over
// entries that reached the relevant milestone. Zero samples is a valid
// result, not an error.
type SLA struct {
	MeanTimeToClaim    time.Duration `json:"mean_time_to_claim"`
	ClaimSamples       int           `json:"claim_samples"`
	MeanTimeToComplete time.Duration `json:"mean_time_to_complete"`
	CompleteSamples    int           `json:"complete_samples"`
}

// Stats is the queue health snapshot exposed to management tooling.
type Stats struct {
	Depth      map[Status]int `json:"depth"`
	Throughput Throughput     `json:"throughput"`
	SLA        SLA            `json:"sla"`
}
