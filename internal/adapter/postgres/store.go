package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxcheck/voxcheck/internal/domain/validation"
	"github.com/voxcheck/voxcheck/internal/domain/verdict"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Validation results ---

func (s *Store) CreateValidationResult(ctx context.Context, res *validation.Result) error {
	detJSON, err := marshalNullable(res.Deterministic)
	if err != nil {
		return fmt.Errorf("marshal deterministic result: %w", err)
	}
	pipeJSON, err := marshalNullable(res.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline result: %w", err)
	}

	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO validation_results
		 (id, mode, language, deterministic, pipeline, final_decision, review_status, confidence, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID, string(res.Mode), res.Language, detJSON, pipeJSON,
		string(res.FinalDecision), string(res.ReviewStatus), res.Confidence,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create validation result: %w", err)
	}
	return nil
}

func (s *Store) GetValidationResult(ctx context.Context, id string) (*validation.Result, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, mode, language, deterministic, pipeline, final_decision, review_status,
		        confidence, adjudication, adjudicated_by, created_at, updated_at
		 FROM validation_results WHERE id = $1`, id)

	res, err := scanValidationResult(row)
	if err != nil {
		return nil, notFoundWrap(err, "get validation result %s", id)
	}
	return res, nil
}

func (s *Store) ListValidationResults(ctx context.Context, reviewStatus validation.ReviewStatus, limit int) ([]validation.Result, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, mode, language, deterministic, pipeline, final_decision, review_status,
		        confidence, adjudication, adjudicated_by, created_at, updated_at
		 FROM validation_results
		 WHERE ($1 = '' OR review_status = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`, string(reviewStatus), limit)
	if err != nil {
		return nil, fmt.Errorf("list validation results: %w", err)
	}
	defer rows.Close()

	var results []validation.Result
	for rows.Next() {
		res, err := scanValidationResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan validation result: %w", err)
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// AttachAdjudication records the human review outcome. The combined verdict
// fields are never touched.
func (s *Store) AttachAdjudication(ctx context.Context, id, outcome, validatorID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_results
		 SET adjudication = $2, adjudicated_by = $3, updated_at = now()
		 WHERE id = $1`,
		id, outcome, validatorID,
	)
	return execExpectOne(tag, err, "attach adjudication to %s", id)
}

func scanValidationResult(row scannable) (*validation.Result, error) {
	var (
		res      validation.Result
		detJSON  []byte
		pipeJSON []byte
	)
	err := row.Scan(
		&res.ID, &res.Mode, &res.Language, &detJSON, &pipeJSON,
		&res.FinalDecision, &res.ReviewStatus, &res.Confidence,
		&res.Adjudication, &res.AdjudicatedBy, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(detJSON) > 0 {
		res.Deterministic = &validation.CheckResult{}
		if err := json.Unmarshal(detJSON, res.Deterministic); err != nil {
			return nil, fmt.Errorf("unmarshal deterministic result: %w", err)
		}
	}
	if len(pipeJSON) > 0 {
		res.Pipeline = &verdict.PipelineResult{}
		if err := json.Unmarshal(pipeJSON, res.Pipeline); err != nil {
			return nil, fmt.Errorf("unmarshal pipeline result: %w", err)
		}
	}
	return &res, nil
}

// marshalNullable marshals v or returns nil for a nil pointer, so JSONB
// columns store SQL NULL instead of the string "null".
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
