package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Noquela/sands-of-duat/internal/history"
	"github.com/Noquela/sands-of-duat/internal/testsupport"
)

func TestRecordAndListRuns(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := history.Run{
		ID: "run-1", StartedAt: base, FinishedAt: base.Add(90 * time.Second),
		StepsCompleted: []string{"setup", "acquisition"}, StepsFailed: []string{"conversion"},
		Acquired: 2, ErrorCount: 1,
	}
	second := history.Run{
		ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Minute),
		Success: true, StepsCompleted: []string{"setup", "acquisition", "conversion", "organization"},
		Acquired: 3, Converted: 3, Organized: 3,
	}
	items := []history.ItemResult{
		{Stage: "acquisition", Name: "Idle", Category: "locomotion", Outcome: "timeout", Detail: "no file"},
		{Stage: "acquisition", Name: "Walking", Category: "locomotion", Outcome: "success"},
	}
	if err := store.RecordRun(ctx, first, items); err != nil {
		t.Fatalf("RecordRun first: %v", err)
	}
	if err := store.RecordRun(ctx, second, []history.ItemResult{{Stage: "acquisition", Name: "Idle", Outcome: "success"}}); err != nil {
		t.Fatalf("RecordRun second: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || !runs[0].Success {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[1].Duration() != 90*time.Second || len(runs[1].StepsFailed) != 1 || runs[1].StepsFailed[0] != "conversion" {
		t.Fatalf("unexpected first run %+v", runs[1])
	}

	got, err := store.ItemResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ItemResults: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Idle" || got[0].Outcome != "timeout" {
		t.Fatalf("unexpected item results %+v", got)
	}

	idle, err := store.ItemHistory(ctx, "Idle")
	if err != nil {
		t.Fatalf("ItemHistory: %v", err)
	}
	if len(idle) != 2 || idle[0].RunID != "run-2" || idle[1].Outcome != "timeout" {
		t.Fatalf("unexpected item history %+v", idle)
	}
}

func TestRecordRunRejectsDuplicateID(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	run := history.Run{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := store.RecordRun(context.Background(), run, nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.RecordRun(context.Background(), run, nil); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := history.OpenPath(path)
	if err != nil {
		if errors.Is(err, history.ErrSchemaMismatch) {
			t.Fatalf("unexpected schema mismatch: %v", err)
		}
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Fatalf("unexpected path %s", reopened.Path())
	}
}
