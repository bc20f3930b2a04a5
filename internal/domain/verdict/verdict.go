// Package verdict defines the evaluator verdict and ensemble pipeline result
// types shared between the model-call transport and the consensus engine.
package verdict

// Decision is an evaluator's (or the pipeline's) behavioral-correctness call.
type Decision string

const (
	DecisionPass        Decision = "pass"
	DecisionFail        Decision = "fail"
	DecisionNeedsReview Decision = "needs_review"
)

// Tier classifies how confident an evaluator is in its decision.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// ConsensusType records how the ensemble reached its final verdict.
type ConsensusType string

const (
	// ConsensusAgreement means both primary evaluators agreed within tolerance.
	ConsensusAgreement ConsensusType = "agreement"
	// ConsensusCuratorTiebreak means a third model broke a disagreement.
	ConsensusCuratorTiebreak ConsensusType = "curator_tiebreak"
	// ConsensusError means the pipeline degraded after a transport failure.
	ConsensusError ConsensusType = "error"
)

// EvaluatorVerdict is one model's opinion on a single validation.
type EvaluatorVerdict struct {
	Evaluator string   `json:"evaluator"`
	Score     float64  `json:"score"`
	Decision  Decision `json:"decision"`
	Reasoning string   `json:"reasoning"`
	Tier      Tier     `json:"confidence"`
}

// PipelineResult is the aggregate outcome of the LLM ensemble stage.
// Callers always receive a well-formed result; failures degrade to
// ErrorResult rather than propagating.
type PipelineResult struct {
	FinalScore    float64            `json:"final_score"`
	FinalDecision Decision           `json:"final_decision"`
	Tier          Tier               `json:"confidence"`
	Consensus     ConsensusType      `json:"consensus_type"`
	Verdicts      []EvaluatorVerdict `json:"verdicts,omitempty"`
}

// Agree reports whether two primary verdicts form a consensus: same decision
// (excluding needs_review) and scores within tolerance.
func Agree(a, b EvaluatorVerdict, tolerance float64) bool {
	if a.Decision != b.Decision {
		return false
	}
	if a.Decision == DecisionNeedsReview {
		return false
	}
	diff := a.Score - b.Score
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// FromAgreement builds the pipeline result for two agreeing primaries.
// The final score is the mean of the two and the tier is high.
func FromAgreement(a, b EvaluatorVerdict) PipelineResult {
	return PipelineResult{
		FinalScore:    (a.Score + b.Score) / 2,
		FinalDecision: a.Decision,
		Tier:          TierHigh,
		Consensus:     ConsensusAgreement,
		Verdicts:      []EvaluatorVerdict{a, b},
	}
}

// FromCurator builds the pipeline result after a curator tie-break. The
// curator's decision and score win, and the tier is downgraded to at most
// medium regardless of the curator's own confidence.
func FromCurator(curator, a, b EvaluatorVerdict) PipelineResult {
	tier := curator.Tier
	if tier != TierLow {
		tier = TierMedium
	}
	return PipelineResult{
		FinalScore:    curator.Score,
		FinalDecision: curator.Decision,
		Tier:          tier,
		Consensus:     ConsensusCuratorTiebreak,
		Verdicts:      []EvaluatorVerdict{a, b, curator},
	}
}

// ErrorResult is the degraded pipeline outcome used when any stage fails.
func ErrorResult() PipelineResult {
	return PipelineResult{
		FinalScore:    0,
		FinalDecision: DecisionNeedsReview,
		Tier:          TierLow,
		Consensus:     ConsensusError,
	}
}
