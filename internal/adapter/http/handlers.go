package http

import (
	"net/http"

	"github.com/voxcheck/voxcheck/internal/domain/queue"
	"github.com/voxcheck/voxcheck/internal/domain/scoring"
	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/service"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	validations *service.ValidationService
	queue       *service.QueueService
	oosSentinel string
}

// NewHandlers creates the handler set.
func NewHandlers(v *service.ValidationService, q *service.QueueService, oosSentinel string) *Handlers {
	return &Handlers{validations: v, queue: q, oosSentinel: oosSentinel}
}

// ---------------------------------------------------------------------------
// Validations
// ---------------------------------------------------------------------------

// Validate runs one validation request through the consensus engine.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[validation.Request](w, r, maxBodyBytes)
	if !ok {
		return
	}

	res, err := h.validations.Validate(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "validation failed")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetValidationResult returns one validation result by ID.
func (h *Handlers) GetValidationResult(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	res, err := h.validations.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "validation result not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListValidationResults returns results, optionally filtered by
// ?review_status= and bounded by ?limit=.
func (h *Handlers) ListValidationResults(w http.ResponseWriter, r *http.Request) {
	status := validation.ReviewStatus(r.URL.Query().Get("review_status"))
	results, err := h.validations.List(r.Context(), status, queryLimit(r, 100))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if results == nil {
		results = []validation.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

// ---------------------------------------------------------------------------
// Review queue
// ---------------------------------------------------------------------------

type enqueueRequest struct {
	ValidationResultID string `json:"validation_result_id"`
	Priority           int    `json:"priority"`
	Language           string `json:"language"`
}

// EnqueueReview adds a validation result to the review queue.
func (h *Handlers) EnqueueReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[enqueueRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if !requireField(w, req.ValidationResultID, "validation_result_id") {
		return
	}

	e, err := h.queue.Enqueue(r.Context(), req.ValidationResultID, req.Priority, req.Language)
	if err != nil {
		writeDomainError(w, err, "validation result not found")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

type claimRequest struct {
	ValidatorID string `json:"validator_id"`
	Language    string `json:"language"`
}

// ClaimReview hands the next eligible entry to a validator. An empty queue
// returns 204 rather than an error.
func (h *Handlers) ClaimReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[claimRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if !requireField(w, req.ValidatorID, "validator_id") {
		return
	}

	e, err := h.queue.Claim(r.Context(), req.ValidatorID, req.Language)
	if err != nil {
		writeDomainError(w, err, "claim failed")
		return
	}
	if e == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type releaseRequest struct {
	ValidatorID string `json:"validator_id"`
}

// ReleaseReview returns a claimed entry to pending.
func (h *Handlers) ReleaseReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[releaseRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if !requireField(w, req.ValidatorID, "validator_id") {
		return
	}

	released, err := h.queue.Release(r.Context(), urlParam(r, "id"), req.ValidatorID)
	if err != nil {
		writeDomainError(w, err, "queue entry not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": released})
}

type completeRequest struct {
	ValidatorID string `json:"validator_id"`
	Outcome     string `json:"outcome"`
}

// CompleteReview finishes a claimed review with the validator's verdict.
func (h *Handlers) CompleteReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[completeRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if !requireField(w, req.ValidatorID, "validator_id") {
		return
	}

	e, err := h.queue.Complete(r.Context(), urlParam(r, "id"), req.ValidatorID, req.Outcome)
	if err != nil {
		writeDomainError(w, err, "queue entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GetQueueEntry returns one queue entry by ID.
func (h *Handlers) GetQueueEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.queue.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "queue entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ListQueueEntries returns entries, optionally filtered by ?status= and
// bounded by ?limit=.
func (h *Handlers) ListQueueEntries(w http.ResponseWriter, r *http.Request) {
	status := queue.Status(r.URL.Query().Get("status"))
	entries, err := h.queue.List(r.Context(), status, queryLimit(r, 100))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if entries == nil {
		entries = []queue.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// QueueStats returns the queue health snapshot.
func (h *Handlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ---------------------------------------------------------------------------
// Out-of-scope statistics
// ---------------------------------------------------------------------------

type oosRequest struct {
	Sentinel string           `json:"sentinel"`
	Samples  []scoring.Sample `json:"samples"`
	Target   *scoring.Target  `json:"target,omitempty"`
}

func (h *Handlers) oosStats(w http.ResponseWriter, req oosRequest) (*scoring.OOSStats, bool) {
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "samples are required")
		return nil, false
	}
	sentinel := req.Sentinel
	if sentinel == "" {
		sentinel = h.oosSentinel
	}
	return scoring.NewOOSStats(sentinel, req.Samples), true
}

// OOSCalibrate reports per-class confidence distributions and separability.
func (h *Handlers) OOSCalibrate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[oosRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	stats, ok := h.oosStats(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Calibrate())
}

// OOSOptimize sweeps the threshold grid and returns the best operating point.
func (h *Handlers) OOSOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[oosRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if req.Target != nil && req.Target.Metric != "far" && req.Target.Metric != "frr" {
		writeError(w, http.StatusBadRequest, "target.metric must be far or frr")
		return
	}
	stats, ok := h.oosStats(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.OptimizeThreshold(req.Target))
}
