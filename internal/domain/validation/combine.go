package validation

import "github.com/voxcheck/voxcheck/internal/domain/verdict"

// Combine merges the deterministic outcome and the ensemble decision into a
// final verdict under the selected mode. detPassed is nil when the
// deterministic checker did not run.
//
// In hybrid mode any disagreement between the two signals yields uncertain:
// the engine flags for review rather than silently favoring one signal.
func Combine(detPassed *bool, llmDecision verdict.Decision, mode Mode) Decision {
	switch mode {
	case ModeDeterministic:
		if detPassed == nil {
			return DecisionUncertain
		}
		if *detPassed {
			return DecisionPass
		}
		return DecisionFail

	case ModeEnsemble:
		return mirrorLLM(llmDecision)

	case ModeHybrid:
		if llmDecision == verdict.DecisionNeedsReview || llmDecision == "" {
			return DecisionUncertain
		}
		if detPassed == nil {
			return mirrorLLM(llmDecision)
		}
		llmPassed := llmDecision == verdict.DecisionPass
		if *detPassed != llmPassed {
			return DecisionUncertain
		}
		if llmPassed {
			return DecisionPass
		}
		return DecisionFail
	}

	return DecisionUncertain
}

func mirrorLLM(d verdict.Decision) Decision {
	switch d {
	case verdict.DecisionPass:
		return DecisionPass
	case verdict.DecisionFail:
		return DecisionFail
	default:
		return DecisionUncertain
	}
}

// ReviewStatusFor derives the review routing from the final decision and the
// ensemble confidence tier. Uncertain always needs review, and a
// low-confidence tier forces review even on an otherwise clean pass/fail.
func ReviewStatusFor(d Decision, tier verdict.Tier) ReviewStatus {
	if d == DecisionUncertain {
		return ReviewNeedsReview
	}
	if tier == verdict.TierLow {
		return ReviewNeedsReview
	}
	if d == DecisionPass {
		return ReviewAutoPass
	}
	return ReviewAutoFail
}
