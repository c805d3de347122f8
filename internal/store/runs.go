package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/roach88/pointsjourney/internal/journey"
)

// Run is one recorded journey execution.
type Run struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	BaseURL    string    `json:"base_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pass       bool      `json:"pass"`

	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	// Steps is populated by ReadRun only.
	Steps []StepRecord `json:"steps,omitempty"`
}

// StepRecord is the stored outcome of one step.
type StepRecord struct {
	Index      int           `json:"index"`
	Name       string        `json:"name"`
	Call       string        `json:"call"`
	Status     string        `json:"status"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// FromResult converts a finished run into its stored form.
func FromResult(baseURL string, r *journey.Result) Run {
	run := Run{
		ID:         r.RunID,
		Scenario:   r.Scenario,
		BaseURL:    baseURL,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Pass:       r.Pass,
		Steps:      make([]StepRecord, 0, len(r.Steps)),
	}
	run.Passed, run.Failed, run.Skipped = r.Counts()
	for _, s := range r.Steps {
		run.Steps = append(run.Steps, StepRecord{
			Index:      s.Index,
			Name:       s.Name,
			Call:       s.Call,
			Status:     s.Status,
			HTTPStatus: s.HTTPStatus,
			Errors:     s.Errors,
			Duration:   s.Duration,
		})
	}
	return run
}

// WriteRun inserts a run and its step results in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run
// twice leaves the first copy untouched.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, base_url, started_at, finished_at, pass)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.BaseURL,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Pass,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("write run: rows affected: %w", err)
	} else if n == 0 {
		return nil
	}

	for _, step := range run.Steps {
		errorsJSON, err := marshalErrors(step.Errors)
		if err != nil {
			return fmt.Errorf("write run: step %d: %w", step.Index, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results
			(run_id, idx, name, call_name, status, http_status, errors, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			step.Index,
			step.Name,
			step.Call,
			step.Status,
			step.HTTPStatus,
			errorsJSON,
			step.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("write run: step %d: %w", step.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

const runColumns = `
	r.id, r.scenario, r.base_url, r.started_at, r.finished_at, r.pass,
	COALESCE(SUM(sr.status = 'passed'), 0),
	COALESCE(SUM(sr.status = 'failed'), 0),
	COALESCE(SUM(sr.status = 'skipped'), 0)
`

// ListRuns returns the most recent runs first, without their steps.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		LEFT JOIN step_results sr ON sr.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run with its steps in execution order.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		LEFT JOIN step_results sr ON sr.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}

	steps, err := s.readSteps(ctx, id)
	if err != nil {
		return Run{}, err
	}
	run.Steps = steps
	return run, nil
}

func (s *Store) readSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, call_name, status, http_status, errors, duration_ms
		FROM step_results
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps for run %s: %w", runID, err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var step StepRecord
		var errorsJSON string
		var durationMS int64
		if err := rows.Scan(
			&step.Index, &step.Name, &step.Call, &step.Status,
			&step.HTTPStatus, &errorsJSON, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if step.Errors, err = unmarshalErrors(errorsJSON); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Index, err)
		}
		step.Duration = time.Duration(durationMS) * time.Millisecond
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedMS, finishedMS int64
	if err := row.Scan(
		&run.ID, &run.Scenario, &run.BaseURL, &startedMS, &finishedMS, &run.Pass,
		&run.Passed, &run.Failed, &run.Skipped,
	); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedMS).UTC()
	run.FinishedAt = time.UnixMilli(finishedMS).UTC()
	return run, nil
}

// marshalErrors converts an error list to canonical JSON TEXT.
func marshalErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize errors: %w", err)
	}
	return string(canonical), nil
}

// unmarshalErrors parses stored errors. An empty list reads back as nil.
func unmarshalErrors(data string) ([]string, error) {
	var errs []string
	if err := json.Unmarshal([]byte(data), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}
