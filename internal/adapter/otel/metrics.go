package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "voxcheck"

// Metrics holds all VoxCheck metric instruments.
type Metrics struct {
	Validations      metric.Int64Counter
	ConsensusReached metric.Int64Counter
	EvaluatorErrors  metric.Int64Counter
	ReviewsQueued    metric.Int64Counter
	ReviewsClaimed   metric.Int64Counter
	ReviewsCompleted metric.Int64Counter
	PipelineDuration metric.Float64Histogram
	TimeToClaim      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Validations, err = meter.Int64Counter("voxcheck.validations",
		metric.WithDescription("Number of validations processed, by final decision"))
	if err != nil {
		return nil, err
	}

	m.ConsensusReached, err = meter.Int64Counter("voxcheck.consensus",
		metric.WithDescription("Number of ensemble runs, by consensus type"))
	if err != nil {
		return nil, err
	}

	m.EvaluatorErrors, err = meter.Int64Counter("voxcheck.evaluator.errors",
		metric.WithDescription("Number of evaluator model-call failures after retries"))
	if err != nil {
		return nil, err
	}

	m.ReviewsQueued, err = meter.Int64Counter("voxcheck.reviews.queued",
		metric.WithDescription("Number of entries enqueued for human review"))
	if err != nil {
		return nil, err
	}

	m.ReviewsClaimed, err = meter.Int64Counter("voxcheck.reviews.claimed",
		metric.WithDescription("Number of review claims granted"))
	if err != nil {
		return nil, err
	}

	m.ReviewsCompleted, err = meter.Int64Counter("voxcheck.reviews.completed",
		metric.WithDescription("Number of reviews completed, by outcome"))
	if err != nil {
		return nil, err
	}

	m.PipelineDuration, err = meter.Float64Histogram("voxcheck.pipeline.duration_seconds",
		metric.WithDescription("Ensemble pipeline duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TimeToClaim, err = meter.Float64Histogram("voxcheck.review.time_to_claim_seconds",
		metric.WithDescription("Time between enqueue and claim in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
