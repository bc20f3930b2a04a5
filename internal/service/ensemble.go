package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/voxcheck/voxcheck/internal/adapter/otel"
	"github.com/voxcheck/voxcheck/internal/config"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
	"github.com/voxcheck/voxcheck/internal/port/evaluator"
	"github.com/voxcheck/voxcheck/internal/resilience"
)

// EnsembleService runs the two-evaluator consensus pipeline with a curator
// tie-break. Evaluate never returns an error: any failure degrades to the
// error result (needs_review, low tier) so a model outage cannot block the
// validation flow.
type EnsembleService struct {
	client  evaluator.Client
	cfg     config.Ensemble
	metrics *otel.Metrics
}

// NewEnsembleService creates an EnsembleService.
func NewEnsembleService(client evaluator.Client, cfg config.Ensemble) *EnsembleService {
	return &EnsembleService{client: client, cfg: cfg}
}

// SetMetrics attaches metric instruments. Nil metrics are skipped.
func (s *EnsembleService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Evaluate runs both primary evaluators in parallel, checks for consensus,
// and falls back to the curator when they disagree.
func (s *EnsembleService) Evaluate(ctx context.Context, in evaluator.Input) verdict.PipelineResult {
	start := time.Now()
	res := s.run(ctx, in)

	if s.metrics != nil {
		s.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
		s.metrics.ConsensusReached.Add(ctx, 1,
			metric.WithAttributes(attribute.String("consensus", string(res.Consensus))))
	}
	return res
}

func (s *EnsembleService) run(ctx context.Context, in evaluator.Input) verdict.PipelineResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PipelineTimeout)
	defer cancel()

	var a, b verdict.EvaluatorVerdict
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.call(gctx, s.cfg.EvaluatorAModel, in)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.call(gctx, s.cfg.EvaluatorBModel, in)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("ensemble: primary evaluator failed", "error", err)
		if s.metrics != nil {
			s.metrics.EvaluatorErrors.Add(ctx, 1)
		}
		return verdict.ErrorResult()
	}

	if verdict.Agree(a, b, s.cfg.ScoreTolerance) {
		slog.Debug("ensemble: primaries agree",
			"decision", a.Decision, "score_a", a.Score, "score_b", b.Score)
		return verdict.FromAgreement(a, b)
	}

	slog.Info("ensemble: primaries disagree, invoking curator",
		"decision_a", a.Decision, "decision_b", b.Decision,
		"score_a", a.Score, "score_b", b.Score)

	curatorIn := in
	curatorIn.PriorVerdicts = []verdict.EvaluatorVerdict{a, b}
	curator, err := s.call(ctx, s.cfg.CuratorModel, curatorIn)
	if err != nil {
		slog.Error("ensemble: curator failed", "error", err)
		if s.metrics != nil {
			s.metrics.EvaluatorErrors.Add(ctx, 1)
		}
		return verdict.ErrorResult()
	}

	return verdict.FromCurator(curator, a, b)
}

// call invokes one model with a per-attempt deadline and the configured
// retry policy for transient transport failures.
func (s *EnsembleService) call(ctx context.Context, model string, in evaluator.Input) (verdict.EvaluatorVerdict, error) {
	policy := resilience.RetryPolicy{
		MaxAttempts: s.cfg.MaxRetries,
		BaseDelay:   s.cfg.RetryBaseDelay,
		MaxDelay:    s.cfg.RetryMaxDelay,
		Jitter:      0.2,
		Retryable:   evaluator.IsRetryable,
	}

	var v verdict.EvaluatorVerdict
	err := policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		var err error
		v, err = s.client.Evaluate(callCtx, model, in)
		return err
	})
	return v, err
}
