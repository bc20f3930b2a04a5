// Package validation defines the validation request/result model, the
// deterministic rule checker and the decision combiner.
package validation

import (
	"fmt"

	"github.com/voxcheck/voxcheck/internal/domain"
)

// Mode selects which signals contribute to the final verdict.
type Mode string

const (
	ModeDeterministic Mode = "deterministic"
	ModeEnsemble      Mode = "ensemble"
	ModeHybrid        Mode = "hybrid"
)

// PlatformResponse is the structured assistant-platform response for one
// scripted step, as captured by the test execution runner.
type PlatformResponse struct {
	CommandKind    string  `json:"command_kind"`
	ASRConfidence  float64 `json:"asr_confidence"`
	SpokenResponse string  `json:"spoken_response"`
}

// ExpectedOutcome describes what the script expects the assistant to do.
type ExpectedOutcome struct {
	CommandKind      string            `json:"command_kind"`
	MinASRConfidence float64           `json:"min_asr_confidence"`
	RequiredPhrases  []string          `json:"required_phrases,omitempty"`
	ForbiddenPhrases []string          `json:"forbidden_phrases,omitempty"`
	Entities         map[string]string `json:"entities,omitempty"`
}

// Turn is one prior exchange in the conversation, oldest first.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is the immutable input to the consensus engine: what the assistant
// actually did, what the script expected, and how to judge the difference.
type Request struct {
	Transcript string           `json:"transcript"`
	Response   PlatformResponse `json:"response"`
	Expected   ExpectedOutcome  `json:"expected"`
	History    []Turn           `json:"history,omitempty"`
	Language   string           `json:"language,omitempty"`
	StepOrder  int              `json:"step_order"`
	Priority   int              `json:"priority"`
	Mode       Mode             `json:"mode"`
}

// Validate checks required fields. Failures wrap domain.ErrInvalidInput and
// are surfaced to the caller immediately, never retried.
func (r *Request) Validate() error {
	if r.Transcript == "" {
		return fmt.Errorf("%w: transcript is required", domain.ErrInvalidInput)
	}
	if r.Expected.CommandKind == "" {
		return fmt.Errorf("%w: expected command kind is required", domain.ErrInvalidInput)
	}
	switch r.Mode {
	case ModeDeterministic, ModeEnsemble, ModeHybrid:
	case "":
		return fmt.Errorf("%w: validation mode is required", domain.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown validation mode %q", domain.ErrInvalidInput, r.Mode)
	}
	if r.Expected.MinASRConfidence < 0 || r.Expected.MinASRConfidence > 1 {
		return fmt.Errorf("%w: min asr confidence must be in [0,1]", domain.ErrInvalidInput)
	}
	return nil
}
