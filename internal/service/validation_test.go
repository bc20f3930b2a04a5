package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/voxcheck/voxcheck/internal/domain"
	"github.com/voxcheck/voxcheck/internal/domain/queue"
	"github.com/voxcheck/voxcheck/internal/domain/scoring"
	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
	"github.com/voxcheck/voxcheck/internal/port/evaluator"
	"github.com/voxcheck/voxcheck/internal/port/messagequeue"
	"github.com/voxcheck/voxcheck/internal/service"
)

func validationResult(id string) *validation.Result {
	return &validation.Result{
		ID:            id,
		Mode:          validation.ModeHybrid,
		FinalDecision: validation.DecisionUncertain,
		ReviewStatus:  validation.ReviewNeedsReview,
	}
}

type validationFixture struct {
	store *mockStore
	eval  *mockEvaluator
	mq    *mockMQ
	svc   *service.ValidationService
}

func newValidationFixture() *validationFixture {
	store := newMockStore()
	eval := newMockEvaluator()
	mq := &mockMQ{}

	ensembleSvc := service.NewEnsembleService(eval, ensembleConfig())
	queueSvc := service.NewQueueService(store, mq, newMockCache(), queueConfig())
	svc := service.NewValidationService(store, ensembleSvc, queueSvc, mq,
		scoring.NewConfidenceScorer(scoring.DefaultWeights()))

	return &validationFixture{store: store, eval: eval, mq: mq, svc: svc}
}

func hybridRequest() *validation.Request {
	return &validation.Request{
		Transcript: "play some jazz",
		Response: validation.PlatformResponse{
			CommandKind:    "play_music",
			ASRConfidence:  0.92,
			SpokenResponse: "Now playing jazz from your library",
		},
		Expected: validation.ExpectedOutcome{
			CommandKind:      "play_music",
			MinASRConfidence: 0.8,
			RequiredPhrases:  []string{"jazz"},
		},
		Mode:     validation.ModeHybrid,
		Priority: 3,
	}
}

func agree(f *validationFixture, d verdict.Decision, scoreA, scoreB float64) {
	f.eval.verdicts["model-a"] = verdict.EvaluatorVerdict{Decision: d, Score: scoreA, Tier: verdict.TierHigh}
	f.eval.verdicts["model-b"] = verdict.EvaluatorVerdict{Decision: d, Score: scoreB, Tier: verdict.TierHigh}
}

func TestValidate_HybridAgreementAutoPass(t *testing.T) {
	f := newValidationFixture()
	agree(f, verdict.DecisionPass, 0.9, 0.85)

	res, err := f.svc.Validate(context.Background(), hybridRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if res.FinalDecision != validation.DecisionPass {
		t.Errorf("FinalDecision = %v, want pass", res.FinalDecision)
	}
	if res.ReviewStatus != validation.ReviewAutoPass {
		t.Errorf("ReviewStatus = %v, want auto_pass", res.ReviewStatus)
	}
	if res.Deterministic == nil || !res.Deterministic.Passed {
		t.Errorf("deterministic result = %+v", res.Deterministic)
	}
	if res.Pipeline == nil || res.Pipeline.Consensus != verdict.ConsensusAgreement {
		t.Errorf("pipeline result = %+v", res.Pipeline)
	}
	if res.Confidence <= 0 {
		t.Errorf("Confidence = %v, want > 0", res.Confidence)
	}

	// Auto-passed results never hit the review queue.
	entries, _ := f.store.ListQueueEntries(context.Background(), "", 10)
	if len(entries) != 0 {
		t.Errorf("queue entries = %d, want 0", len(entries))
	}
	if !f.mq.published(messagequeue.SubjectValidationCompleted) {
		t.Error("validation.completed not published")
	}

	// Persisted as returned.
	stored, err := f.store.GetValidationResult(context.Background(), res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.FinalDecision != res.FinalDecision {
		t.Errorf("stored decision %v != returned %v", stored.FinalDecision, res.FinalDecision)
	}
}

func TestValidate_HybridDisagreementEnqueues(t *testing.T) {
	f := newValidationFixture()
	// Deterministic passes, ensemble fails (with agreement between models).
	agree(f, verdict.DecisionFail, 0.2, 0.25)

	res, err := f.svc.Validate(context.Background(), hybridRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if res.FinalDecision != validation.DecisionUncertain {
		t.Errorf("FinalDecision = %v, want uncertain on signal disagreement", res.FinalDecision)
	}
	if res.ReviewStatus != validation.ReviewNeedsReview {
		t.Errorf("ReviewStatus = %v, want needs_review", res.ReviewStatus)
	}

	entries, _ := f.store.ListQueueEntries(context.Background(), queue.StatusPending, 10)
	if len(entries) != 1 {
		t.Fatalf("queue entries = %d, want 1", len(entries))
	}
	if entries[0].ValidationResultID != res.ID {
		t.Errorf("queued result = %s, want %s", entries[0].ValidationResultID, res.ID)
	}
	if entries[0].Priority != 3 {
		t.Errorf("queued priority = %d, want request priority 3", entries[0].Priority)
	}
	if !f.mq.published(messagequeue.SubjectReviewQueued) {
		t.Error("review.queued not published")
	}
}

func TestValidate_CuratorTiebreakPersisted(t *testing.T) {
	f := newValidationFixture()
	// Primaries split; the curator sides with fail while the deterministic
	// checker passes, so the combined verdict must stay uncertain.
	f.eval.verdicts["model-a"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionPass, Score: 0.9, Tier: verdict.TierHigh}
	f.eval.verdicts["model-b"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionFail, Score: 0.2, Tier: verdict.TierHigh}
	f.eval.verdicts["model-c"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionFail, Score: 0.3, Tier: verdict.TierHigh}

	res, err := f.svc.Validate(context.Background(), hybridRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if res.Pipeline == nil || res.Pipeline.Consensus != verdict.ConsensusCuratorTiebreak {
		t.Fatalf("pipeline = %+v, want curator_tiebreak consensus", res.Pipeline)
	}
	if res.Pipeline.FinalDecision != verdict.DecisionFail {
		t.Errorf("pipeline decision = %v, want the curator's fail", res.Pipeline.FinalDecision)
	}
	if res.FinalDecision != validation.DecisionUncertain {
		t.Errorf("FinalDecision = %v, want uncertain on signal disagreement", res.FinalDecision)
	}
	if res.ReviewStatus != validation.ReviewNeedsReview {
		t.Errorf("ReviewStatus = %v, want needs_review", res.ReviewStatus)
	}

	// The consensus type survives persistence.
	stored, err := f.store.GetValidationResult(context.Background(), res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Pipeline == nil || stored.Pipeline.Consensus != verdict.ConsensusCuratorTiebreak {
		t.Errorf("stored pipeline = %+v, want curator_tiebreak consensus", stored.Pipeline)
	}

	entries, _ := f.store.ListQueueEntries(context.Background(), queue.StatusPending, 10)
	if len(entries) != 1 || entries[0].ValidationResultID != res.ID {
		t.Errorf("pending entries = %+v, want one for %s", entries, res.ID)
	}
}

func TestValidate_EnsembleOutageDegrades(t *testing.T) {
	f := newValidationFixture()
	down := &evaluator.TransportError{StatusCode: 503, Retryable: false, Err: errors.New("evaluator down")}
	f.eval.errs["model-a"] = down
	f.eval.errs["model-b"] = down

	req := hybridRequest()
	req.Mode = validation.ModeEnsemble

	res, err := f.svc.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate must not fail on evaluator outage: %v", err)
	}

	if res.FinalDecision != validation.DecisionUncertain {
		t.Errorf("FinalDecision = %v, want uncertain", res.FinalDecision)
	}
	if res.Pipeline == nil || res.Pipeline.Consensus != verdict.ConsensusError {
		t.Errorf("pipeline = %+v, want error consensus", res.Pipeline)
	}
	if res.Deterministic != nil {
		t.Error("deterministic checker ran in ensemble mode")
	}

	entries, _ := f.store.ListQueueEntries(context.Background(), queue.StatusPending, 10)
	if len(entries) != 1 {
		t.Errorf("queue entries = %d, want 1", len(entries))
	}
}

func TestValidate_DeterministicModeSkipsModels(t *testing.T) {
	f := newValidationFixture()

	req := hybridRequest()
	req.Mode = validation.ModeDeterministic

	res, err := f.svc.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if res.FinalDecision != validation.DecisionPass {
		t.Errorf("FinalDecision = %v, want pass", res.FinalDecision)
	}
	if res.Pipeline != nil {
		t.Error("ensemble ran in deterministic mode")
	}
	if f.eval.callCount("model-a")+f.eval.callCount("model-b") != 0 {
		t.Error("models were called in deterministic mode")
	}
}

func TestValidate_DeterministicFailAutoFails(t *testing.T) {
	f := newValidationFixture()

	req := hybridRequest()
	req.Mode = validation.ModeDeterministic
	req.Response.CommandKind = "set_timer"

	res, err := f.svc.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.FinalDecision != validation.DecisionFail {
		t.Errorf("FinalDecision = %v, want fail", res.FinalDecision)
	}
	if res.ReviewStatus != validation.ReviewAutoFail {
		t.Errorf("ReviewStatus = %v, want auto_fail", res.ReviewStatus)
	}
}

func TestValidate_LowTierForcesReview(t *testing.T) {
	f := newValidationFixture()
	// Primaries disagree; low-confidence curator keeps the low tier.
	f.eval.verdicts["model-a"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionPass, Score: 0.9, Tier: verdict.TierHigh}
	f.eval.verdicts["model-b"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionFail, Score: 0.2, Tier: verdict.TierHigh}
	f.eval.verdicts["model-c"] = verdict.EvaluatorVerdict{Decision: verdict.DecisionPass, Score: 0.6, Tier: verdict.TierLow}

	req := hybridRequest()
	req.Mode = validation.ModeEnsemble

	res, err := f.svc.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.FinalDecision != validation.DecisionPass {
		t.Errorf("FinalDecision = %v, want pass", res.FinalDecision)
	}
	if res.ReviewStatus != validation.ReviewNeedsReview {
		t.Errorf("ReviewStatus = %v, want needs_review on low tier", res.ReviewStatus)
	}
}

func TestValidate_InvalidRequestRejected(t *testing.T) {
	f := newValidationFixture()

	req := hybridRequest()
	req.Transcript = ""

	if _, err := f.svc.Validate(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Validate err = %v, want ErrInvalidInput", err)
	}
	if f.eval.callCount("model-a") != 0 {
		t.Error("models called for an invalid request")
	}
}
