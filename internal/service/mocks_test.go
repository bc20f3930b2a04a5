package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxcheck/voxcheck/internal/domain"
	"github.com/voxcheck/voxcheck/internal/domain/queue"
	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
	"github.com/voxcheck/voxcheck/internal/port/evaluator"
)

// mockStore is an in-memory database.Store. The mutex makes claim exclusivity
// testable under concurrent callers.
type mockStore struct {
	mu      sync.Mutex
	results map[string]*validation.Result
	entries map[string]*queue.Entry
}

func newMockStore() *mockStore {
	return &mockStore{
		results: make(map[string]*validation.Result),
		entries: make(map[string]*queue.Entry),
	}
}

func (m *mockStore) CreateValidationResult(_ context.Context, res *validation.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.results[res.ID] = &cp
	return nil
}

func (m *mockStore) GetValidationResult(_ context.Context, id string) (*validation.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[id]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
	}
	cp := *res
	return &cp, nil
}

func (m *mockStore) ListValidationResults(_ context.Context, status validation.ReviewStatus, _ int) ([]validation.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []validation.Result
	for _, res := range m.results {
		if status == "" || res.ReviewStatus == status {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *mockStore) AttachAdjudication(_ context.Context, id, outcome, validatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[id]
	if !ok {
		return fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
	}
	res.Adjudication = outcome
	res.AdjudicatedBy = validatorID
	return nil
}

func (m *mockStore) EnqueueReview(_ context.Context, e *queue.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entries {
		if existing.ValidationResultID == e.ValidationResultID && existing.Active() {
			return fmt.Errorf("enqueue %s: %w", e.ValidationResultID, domain.ErrDuplicateEntry)
		}
	}
	e.Status = queue.StatusPending
	e.CreatedAt = time.Now().UTC()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockStore) GetQueueEntry(_ context.Context, id string) (*queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) ListQueueEntries(_ context.Context, status queue.Status, _ int) ([]queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.Entry
	for _, e := range m.entries {
		if status == "" || e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockStore) ClaimNextReview(_ context.Context, validatorID, language string) (*queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *queue.Entry
	for _, e := range m.entries {
		if e.Status != queue.StatusPending {
			continue
		}
		if language != "" && e.Language != language {
			continue
		}
		if best == nil || e.Priority > best.Priority ||
			(e.Priority == best.Priority && e.CreatedAt.Before(best.CreatedAt)) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	best.Status = queue.StatusClaimed
	best.ClaimedBy = validatorID
	best.ClaimedAt = &now
	cp := *best
	return &cp, nil
}

func (m *mockStore) ReleaseReview(_ context.Context, id, validatorID string) (*queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	if e.Status != queue.StatusClaimed {
		return nil, nil
	}
	if e.ClaimedBy != validatorID {
		return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotOwner)
	}
	e.Status = queue.StatusPending
	e.ClaimedBy = ""
	e.ClaimedAt = nil
	cp := *e
	return &cp, nil
}

func (m *mockStore) CompleteReview(_ context.Context, id, validatorID, outcome string) (*queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	if e.Status != queue.StatusClaimed {
		return nil, fmt.Errorf("entry %s in %s: %w", id, e.Status, domain.ErrConflict)
	}
	if e.ClaimedBy != validatorID {
		return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotOwner)
	}
	now := time.Now().UTC()
	e.Status = queue.StatusCompleted
	e.Outcome = outcome
	e.CompletedAt = &now
	cp := *e
	return &cp, nil
}

func (m *mockStore) CountQueueByStatus(_ context.Context) (map[queue.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[queue.Status]int)
	for _, e := range m.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (m *mockStore) CountCompletedSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Status == queue.StatusCompleted && e.CompletedAt != nil && !e.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) QueueSLA(_ context.Context) (queue.SLA, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sla queue.SLA
	var claimSum, completeSum time.Duration
	for _, e := range m.entries {
		if e.ClaimedAt != nil {
			claimSum += e.ClaimedAt.Sub(e.CreatedAt)
			sla.ClaimSamples++
		}
		if e.CompletedAt != nil && e.ClaimedAt != nil {
			completeSum += e.CompletedAt.Sub(*e.ClaimedAt)
			sla.CompleteSamples++
		}
	}
	if sla.ClaimSamples > 0 {
		sla.MeanTimeToClaim = claimSum / time.Duration(sla.ClaimSamples)
	}
	if sla.CompleteSamples > 0 {
		sla.MeanTimeToComplete = completeSum / time.Duration(sla.CompleteSamples)
	}
	return sla, nil
}

func (m *mockStore) ReleaseStaleClaims(_ context.Context, claimedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Status == queue.StatusClaimed && e.ClaimedAt != nil && e.ClaimedAt.Before(claimedBefore) {
			e.Status = queue.StatusPending
			e.ClaimedBy = ""
			e.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ExpirePending(_ context.Context, createdBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Status == queue.StatusPending && e.CreatedAt.Before(createdBefore) {
			e.Status = queue.StatusExpired
			n++
		}
	}
	return n, nil
}

// mockEvaluator returns scripted verdicts per model, with optional error
// injection and call counting.
type mockEvaluator struct {
	mu       sync.Mutex
	verdicts map[string]verdict.EvaluatorVerdict
	errs     map[string]error
	failures map[string]int // transient failures before success, per model
	calls    map[string]int
	onCall   func(model string, in evaluator.Input)
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{
		verdicts: make(map[string]verdict.EvaluatorVerdict),
		errs:     make(map[string]error),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (m *mockEvaluator) Evaluate(_ context.Context, model string, in evaluator.Input) (verdict.EvaluatorVerdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[model]++
	if m.onCall != nil {
		m.onCall(model, in)
	}
	if m.failures[model] > 0 {
		m.failures[model]--
		return verdict.EvaluatorVerdict{}, &evaluator.TransportError{
			StatusCode: 503,
			Retryable:  true,
			Err:        fmt.Errorf("model %s unavailable", model),
		}
	}
	if err := m.errs[model]; err != nil {
		return verdict.EvaluatorVerdict{}, err
	}
	v := m.verdicts[model]
	v.Evaluator = model
	return v, nil
}

func (m *mockEvaluator) callCount(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[model]
}

// mockMQ records published events and their payloads.
type mockMQ struct {
	mu       sync.Mutex
	subjects []string
	payloads map[string][]byte
}

func (m *mockMQ) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	if m.payloads == nil {
		m.payloads = make(map[string][]byte)
	}
	m.payloads[subject] = data
	return nil
}

func (m *mockMQ) published(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func (m *mockMQ) lastPayload(subject string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloads[subject]
}

// mockCache is a TTL-less in-memory cache.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
