package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Run is one pipeline execution.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Success        bool
	Aborted        bool
	Canceled       bool
	StepsCompleted []string
	StepsFailed    []string
	Acquired       int
	Converted      int
	Organized      int
	ErrorCount     int
}

// Duration is the wall-clock length of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ItemResult is one item's outcome within a stage of a run.
type ItemResult struct {
	RunID    string
	Stage    string
	Name     string
	Category string
	Outcome  string
	Detail   string
}

// RecordRun stores a run and its item results atomically.
func (s *Store) RecordRun(ctx context.Context, run Run, items []ItemResult) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `INSERT INTO runs (
			id, started_at, finished_at, success, aborted, canceled,
			steps_completed, steps_failed, acquired, converted, organized, error_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			formatTime(run.StartedAt),
			formatTime(run.FinishedAt),
			boolToInt(run.Success),
			boolToInt(run.Aborted),
			boolToInt(run.Canceled),
			strings.Join(run.StepsCompleted, ","),
			strings.Join(run.StepsFailed, ","),
			run.Acquired,
			run.Converted,
			run.Organized,
			run.ErrorCount,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO item_results
			(run_id, stage, name, category, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare item insert: %w", err)
		}
		defer stmt.Close()
		for _, item := range items {
			if _, err := stmt.ExecContext(ctx, run.ID, item.Stage, item.Name, item.Category, item.Outcome, item.Detail); err != nil {
				return fmt.Errorf("insert item %s: %w", item.Name, err)
			}
		}
		return tx.Commit()
	})
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, finished_at, success, aborted, canceled,
		steps_completed, steps_failed, acquired, converted, organized, error_count
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ItemResults lists the recorded outcomes of a run in stage then name order.
func (s *Store) ItemResults(ctx context.Context, runID string) ([]ItemResult, error) {
	return s.queryItems(ctx, `SELECT run_id, stage, name, category, outcome, detail
		FROM item_results WHERE run_id = ? ORDER BY stage, name`, runID)
}

// ItemHistory lists every recorded outcome for one item, newest run first.
func (s *Store) ItemHistory(ctx context.Context, name string) ([]ItemResult, error) {
	return s.queryItems(ctx, `SELECT i.run_id, i.stage, i.name, i.category, i.outcome, i.detail
		FROM item_results i JOIN runs r ON r.id = i.run_id
		WHERE i.name = ? ORDER BY r.started_at DESC, i.stage`, name)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]ItemResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query item results: %w", err)
	}
	defer rows.Close()

	var items []ItemResult
	for rows.Next() {
		var item ItemResult
		if err := rows.Scan(&item.RunID, &item.Stage, &item.Name, &item.Category, &item.Outcome, &item.Detail); err != nil {
			return nil, fmt.Errorf("scan item result: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run                    Run
		started, finished      string
		success, aborted, canc int
		completed, failed      string
	)
	if err := scanner.Scan(&run.ID, &started, &finished, &success, &aborted, &canc,
		&completed, &failed, &run.Acquired, &run.Converted, &run.Organized, &run.ErrorCount); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	run.Success, run.Aborted, run.Canceled = success != 0, aborted != 0, canc != 0
	run.StepsCompleted = splitList(completed)
	run.StepsFailed = splitList(failed)
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
