package validation

import (
	"time"

	"github.com/voxcheck/voxcheck/internal/domain/verdict"
)

// Decision is the combined final verdict for one validation.
type Decision string

const (
	DecisionPass      Decision = "pass"
	DecisionFail      Decision = "fail"
	DecisionUncertain Decision = "uncertain"
)

// ReviewStatus routes a finalized result: auto-accepted, auto-rejected,
// or pending human review.
type ReviewStatus string

const (
	ReviewAutoPass    ReviewStatus = "auto_pass"
	ReviewAutoFail    ReviewStatus = "auto_fail"
	ReviewNeedsReview ReviewStatus = "needs_review"
)

// Result is the durable record of one validation. It is finalized exactly
// once by the combiner; the only later mutation is attaching a human
// adjudication outcome.
type Result struct {
	ID            string                  `json:"id"`
	Mode          Mode                    `json:"mode"`
	Language      string                  `json:"language,omitempty"`
	Deterministic *CheckResult            `json:"deterministic,omitempty"`
	Pipeline      *verdict.PipelineResult `json:"pipeline,omitempty"`
	FinalDecision Decision                `json:"final_decision"`
	ReviewStatus  ReviewStatus            `json:"review_status"`
	Confidence    float64                 `json:"confidence"`
	Adjudication  string                  `json:"adjudication,omitempty"`
	AdjudicatedBy string                  `json:"adjudicated_by,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}
