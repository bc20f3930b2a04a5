package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxcheck/voxcheck/internal/adapter/otel"
	"github.com/voxcheck/voxcheck/internal/domain"
	"github.com/voxcheck/voxcheck/internal/domain/scoring"
	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
	"github.com/voxcheck/voxcheck/internal/port/database"
	"github.com/voxcheck/voxcheck/internal/port/evaluator"
	"github.com/voxcheck/voxcheck/internal/port/messagequeue"
)

// ValidationService is the consensus engine entry point. It runs the checks
// the mode calls for, combines their signals into a final verdict, persists
// the result and routes needs_review outcomes to the human review queue.
type ValidationService struct {
	store    database.Store
	ensemble *EnsembleService
	queue    *QueueService
	mq       messagequeue.Queue
	scorer   *scoring.ConfidenceScorer
	metrics  *otel.Metrics
}

// NewValidationService creates a ValidationService.
func NewValidationService(
	store database.Store,
	ensemble *EnsembleService,
	queue *QueueService,
	mq messagequeue.Queue,
	scorer *scoring.ConfidenceScorer,
) *ValidationService {
	return &ValidationService{
		store:    store,
		ensemble: ensemble,
		queue:    queue,
		mq:       mq,
		scorer:   scorer,
	}
}

// SetMetrics attaches metric instruments. Nil metrics are skipped.
func (s *ValidationService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Validate runs one validation end to end and returns the persisted result.
// Invalid requests fail fast with domain.ErrInvalidInput; evaluator outages
// degrade to an uncertain result rather than an error.
func (s *ValidationService) Validate(ctx context.Context, req *validation.Request) (*validation.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &validation.Result{
		ID:       uuid.NewString(),
		Mode:     req.Mode,
		Language: req.Language,
	}

	var detPassed *bool
	if req.Mode == validation.ModeDeterministic || req.Mode == validation.ModeHybrid {
		check := validation.Check(req)
		res.Deterministic = &check
		detPassed = &check.Passed
	}

	var llmDecision verdict.Decision
	tier := verdict.TierHigh
	if req.Mode == validation.ModeEnsemble || req.Mode == validation.ModeHybrid {
		pipeline := s.ensemble.Evaluate(ctx, buildEvaluatorInput(req))
		res.Pipeline = &pipeline
		llmDecision = pipeline.FinalDecision
		tier = pipeline.Tier
	}

	res.Confidence = s.scorer.Calculate(signalScores(req, res))
	res.FinalDecision = validation.Combine(detPassed, llmDecision, req.Mode)
	res.ReviewStatus = validation.ReviewStatusFor(res.FinalDecision, tier)

	if err := s.store.CreateValidationResult(ctx, res); err != nil {
		return nil, err
	}

	if res.ReviewStatus == validation.ReviewNeedsReview {
		if _, err := s.queue.Enqueue(ctx, res.ID, req.Priority, req.Language); err != nil {
			if errors.Is(err, domain.ErrDuplicateEntry) {
				slog.Warn("review entry already active for result", "result_id", res.ID)
			} else {
				slog.Error("failed to enqueue review", "result_id", res.ID, "error", err)
			}
		}
	}

	slog.Info("validation finalized",
		"result_id", res.ID,
		"mode", req.Mode,
		"decision", res.FinalDecision,
		"review_status", res.ReviewStatus,
		"confidence", res.Confidence,
	)

	if s.metrics != nil {
		s.metrics.Validations.Add(ctx, 1,
			metric.WithAttributes(attribute.String("decision", string(res.FinalDecision))))
	}
	s.publishCompleted(ctx, res)
	return res, nil
}

// Get returns one validation result by ID.
func (s *ValidationService) Get(ctx context.Context, id string) (*validation.Result, error) {
	return s.store.GetValidationResult(ctx, id)
}

// List returns results filtered by review status (empty means all), newest
// first.
func (s *ValidationService) List(ctx context.Context, reviewStatus validation.ReviewStatus, limit int) ([]validation.Result, error) {
	return s.store.ListValidationResults(ctx, reviewStatus, limit)
}

// buildEvaluatorInput projects the request into the shared evaluation context
// sent to every ensemble model.
func buildEvaluatorInput(req *validation.Request) evaluator.Input {
	return evaluator.Input{
		Transcript:          req.Transcript,
		SpokenResponse:      req.Response.SpokenResponse,
		ActualCommandKind:   req.Response.CommandKind,
		ExpectedCommandKind: req.Expected.CommandKind,
		ExpectedEntities:    req.Expected.Entities,
		History:             req.History,
		StepOrder:           req.StepOrder,
	}
}

// signalScores collects the per-validator scores feeding the weighted
// confidence value. Signals the mode did not produce are simply absent.
func signalScores(req *validation.Request, res *validation.Result) map[string]float64 {
	scores := map[string]float64{
		"intent": scoring.MatchIntent(req.Response.CommandKind, req.Expected.CommandKind),
	}
	if len(req.Expected.Entities) > 0 {
		scores["entity"] = entityScore(req)
	}
	if res.Pipeline != nil {
		scores["semantic"] = res.Pipeline.FinalScore
	}
	return scores
}

// entityScore is the fraction of expected entity values mentioned in the
// spoken response, matched case-insensitively.
func entityScore(req *validation.Request) float64 {
	spoken := strings.ToLower(req.Response.SpokenResponse)
	matched := 0
	for _, v := range req.Expected.Entities {
		if v != "" && strings.Contains(spoken, strings.ToLower(v)) {
			matched++
		}
	}
	return float64(matched) / float64(len(req.Expected.Entities))
}

func (s *ValidationService) publishCompleted(ctx context.Context, res *validation.Result) {
	if s.mq == nil {
		return
	}
	payload := messagequeue.ValidationCompletedPayload{
		ResultID:      res.ID,
		FinalDecision: string(res.FinalDecision),
		ReviewStatus:  string(res.ReviewStatus),
		Confidence:    res.Confidence,
	}
	if res.Pipeline != nil {
		payload.ConsensusType = string(res.Pipeline.Consensus)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.mq.Publish(ctx, messagequeue.SubjectValidationCompleted, data); err != nil {
		slog.Warn("failed to publish validation event", "result_id", res.ID, "error", err)
	}
}
