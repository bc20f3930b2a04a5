// Package evaluator defines the model-call transport port used by the LLM
// ensemble pipeline.
package evaluator

import (
	"context"
	"errors"

	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
)

// Input is the shared evaluation context sent to every model. PriorVerdicts
// is populated only for the curator tie-break stage.
type Input struct {
	Transcript          string
	SpokenResponse      string
	ActualCommandKind   string
	ExpectedCommandKind string
	ExpectedEntities    map[string]string
	History             []validation.Turn
	StepOrder           int
	PriorVerdicts       []verdict.EvaluatorVerdict
}

// Client is the transport invoked by the ensemble pipeline. Implementations
// must surface retryable vs. non-retryable failures via TransportError.
type Client interface {
	Evaluate(ctx context.Context, model string, in Input) (verdict.EvaluatorVerdict, error)
}

// TransportError classifies a model-call failure. Timeouts, connection
// failures, 5xx and 429 are retryable; other 4xx are not.
type TransportError struct {
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient transport failure worth
// retrying. Context cancellation is never retryable; errors of unknown shape
// (network-level) are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return true
}
