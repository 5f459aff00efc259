package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pagecheck/internal/harness"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one recorded check run.
type RunRecord struct {
	ID        string            `json:"id"`
	Seq       int64             `json:"seq"`
	Document  string            `json:"document"`
	RuleSet   string            `json:"rule_set,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Summary   harness.Summary   `json:"summary"`
	Outcomes  []harness.Outcome `json:"outcomes,omitempty"`
}

// Pass reports whether the recorded run had no failures.
func (r RunRecord) Pass() bool {
	return r.Summary.Failed == 0
}

// NewRunRecord captures a result for recording. ID and Seq are assigned by
// RecordRun.
func NewRunRecord(result *harness.RunResult, startedAt time.Time) RunRecord {
	return RunRecord{
		Document:  result.Document,
		RuleSet:   result.RuleSet,
		StartedAt: startedAt,
		Summary:   result.Summary(),
		Outcomes:  result.Outcomes,
	}
}

// RuleStatus is one rule's outcome within a recorded run.
type RuleStatus struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Status    harness.Status `json:"status"`
	Message   string         `json:"message,omitempty"`
}

// RecordRun stores a run and its outcomes in one transaction and returns
// the stored record with ID and Seq set. A record with an empty ID gets one
// from the store's IDGenerator.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) (RunRecord, error) {
	if rec.ID == "" {
		id, err := s.ids.Generate()
		if err != nil {
			return RunRecord{}, fmt.Errorf("record run: %w", err)
		}
		rec.ID = id
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunRecord{}, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&rec.Seq); err != nil {
		return RunRecord{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, document, rule_set, started_at, total, passed, failed, warned, faults)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Seq,
		rec.Document,
		rec.RuleSet,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Summary.Total,
		rec.Summary.Passed,
		rec.Summary.Failed,
		rec.Summary.Warned,
		rec.Summary.Faults,
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("record run %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes
		(run_id, position, rule_id, name, rule_group, status, message, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return RunRecord{}, fmt.Errorf("record run %s: prepare outcomes: %w", rec.ID, err)
	}
	defer stmt.Close()

	for i, o := range rec.Outcomes {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, o.RuleID, o.Name, o.Group, string(o.Status), o.Message, o.Fault); err != nil {
			return RunRecord{}, fmt.Errorf("record run %s: outcome %s: %w", rec.ID, o.RuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("record run %s: commit: %w", rec.ID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs first, without outcomes.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) if no runs are recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, seq, document, rule_set, started_at, total, passed, failed, warned, faults
		FROM runs
		ORDER BY seq DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns one run with its outcomes. Returns ErrRunNotFound if the id
// is unknown.
func (s *Store) Run(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, document, rule_set, started_at, total, passed, failed, warned, faults
		FROM runs
		WHERE id = ?
	`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rec.Outcomes, err = s.Outcomes(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// Outcomes returns a run's outcomes in rule order.
// Returns ErrRunNotFound if the id is unknown.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]harness.Outcome, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, name, rule_group, status, message, fault
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []harness.Outcome{}
	for rows.Next() {
		var o harness.Outcome
		var status string
		if err := rows.Scan(&o.RuleID, &o.Name, &o.Group, &status, &o.Message, &o.Fault); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = harness.Status(status)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// RuleHistory returns one rule's status across the most recent runs,
// newest first. A limit of zero or less returns every run.
func (s *Store) RuleHistory(ctx context.Context, ruleID string, limit int) ([]RuleStatus, error) {
	query := `
		SELECT r.id, r.started_at, o.status, o.message
		FROM outcomes o
		JOIN runs r ON r.id = o.run_id
		WHERE o.rule_id = ?
		ORDER BY r.seq DESC
	`
	args := []any{ruleID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rule history: %w", err)
	}
	defer rows.Close()

	history := []RuleStatus{}
	for rows.Next() {
		var rs RuleStatus
		var startedAt, status string
		if err := rows.Scan(&rs.RunID, &startedAt, &status, &rs.Message); err != nil {
			return nil, fmt.Errorf("scan rule history: %w", err)
		}
		if rs.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", rs.RunID, err)
		}
		rs.Status = harness.Status(status)
		history = append(history, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule history: %w", err)
	}
	return history, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var startedAt string
	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Document,
		&rec.RuleSet,
		&startedAt,
		&rec.Summary.Total,
		&rec.Summary.Passed,
		&rec.Summary.Failed,
		&rec.Summary.Warned,
		&rec.Summary.Faults,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return RunRecord{}, fmt.Errorf("parse started_at of run %s: %w", rec.ID, err)
	}
	return rec, nil
}
