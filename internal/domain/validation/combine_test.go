package validation_test

import (
	"testing"

	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
)

func boolPtr(b bool) *bool { return &b }

func TestCombine(t *testing.T) {
	tests := []struct {
		name      string
		detPassed *bool
		llm       verdict.Decision
		mode      validation.Mode
		want      validation.Decision
	}{
		// Deterministic mode mirrors the checker and ignores the LLM.
		{"det pass", boolPtr(true), verdict.DecisionFail, validation.ModeDeterministic, validation.DecisionPass},
		{"det fail", boolPtr(false), verdict.DecisionPass, validation.ModeDeterministic, validation.DecisionFail},
		{"det missing", nil, "", validation.ModeDeterministic, validation.DecisionUncertain},

		// Ensemble mode mirrors the LLM and ignores the checker.
		{"llm pass", boolPtr(false), verdict.DecisionPass, validation.ModeEnsemble, validation.DecisionPass},
		{"llm fail", nil, verdict.DecisionFail, validation.ModeEnsemble, validation.DecisionFail},
		{"llm needs review", nil, verdict.DecisionNeedsReview, validation.ModeEnsemble, validation.DecisionUncertain},
		{"llm absent", nil, "", validation.ModeEnsemble, validation.DecisionUncertain},

		// Hybrid: agreement resolves, any disagreement is uncertain.
		{"hybrid both pass", boolPtr(true), verdict.DecisionPass, validation.ModeHybrid, validation.DecisionPass},
		{"hybrid both fail", boolPtr(false), verdict.DecisionFail, validation.ModeHybrid, validation.DecisionFail},
		{"hybrid det pass llm fail", boolPtr(true), verdict.DecisionFail, validation.ModeHybrid, validation.DecisionUncertain},
		{"hybrid det fail llm pass", boolPtr(false), verdict.DecisionPass, validation.ModeHybrid, validation.DecisionUncertain},
		{"hybrid llm needs review", boolPtr(true), verdict.DecisionNeedsReview, validation.ModeHybrid, validation.DecisionUncertain},
		{"hybrid llm absent", boolPtr(true), "", validation.ModeHybrid, validation.DecisionUncertain},
		{"hybrid det missing llm pass", nil, verdict.DecisionPass, validation.ModeHybrid, validation.DecisionPass},

		{"unknown mode", boolPtr(true), verdict.DecisionPass, validation.Mode("bogus"), validation.DecisionUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validation.Combine(tt.detPassed, tt.llm, tt.mode)
			if got != tt.want {
				t.Errorf("Combine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReviewStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		decision validation.Decision
		tier     verdict.Tier
		want     validation.ReviewStatus
	}{
		{"pass high tier", validation.DecisionPass, verdict.TierHigh, validation.ReviewAutoPass},
		{"pass medium tier", validation.DecisionPass, verdict.TierMedium, validation.ReviewAutoPass},
		{"fail high tier", validation.DecisionFail, verdict.TierHigh, validation.ReviewAutoFail},
		{"uncertain always reviews", validation.DecisionUncertain, verdict.TierHigh, validation.ReviewNeedsReview},
		{"low tier forces review on pass", validation.DecisionPass, verdict.TierLow, validation.ReviewNeedsReview},
		{"low tier forces review on fail", validation.DecisionFail, verdict.TierLow, validation.ReviewNeedsReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validation.ReviewStatusFor(tt.decision, tt.tier)
			if got != tt.want {
				t.Errorf("ReviewStatusFor(%v, %v) = %v, want %v", tt.decision, tt.tier, got, tt.want)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	valid := func() *validation.Request {
		return &validation.Request{
			Transcript: "play some jazz",
			Expected:   validation.ExpectedOutcome{CommandKind: "play_music", MinASRConfidence: 0.8},
			Mode:       validation.ModeHybrid,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*validation.Request)
	}{
		{"missing transcript", func(r *validation.Request) { r.Transcript = "" }},
		{"missing expected command kind", func(r *validation.Request) { r.Expected.CommandKind = "" }},
		{"missing mode", func(r *validation.Request) { r.Mode = "" }},
		{"unknown mode", func(r *validation.Request) { r.Mode = "fuzzy" }},
		{"confidence floor above 1", func(r *validation.Request) { r.Expected.MinASRConfidence = 1.5 }},
		{"negative confidence floor", func(r *validation.Request) { r.Expected.MinASRConfidence = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			if err := r.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
