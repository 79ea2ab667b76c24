package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Noquela/sands-of-duat/internal/report"
)

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		successes int
		failures  int
		want      float64
	}{
		{0, 0, 0},
		{7, 3, 0.7},
		{10, 0, 1},
		{0, 4, 0},
		{-1, 2, 0},
	}
	for _, tt := range tests {
		got := report.SuccessRate(tt.successes, tt.failures)
		if got != tt.want {
			t.Fatalf("SuccessRate(%d, %d) = %v, want %v", tt.successes, tt.failures, got, tt.want)
		}
		if got < 0 || got > 1 {
			t.Fatalf("rate %v out of bounds", got)
		}
	}
}

func TestNewStageReport(t *testing.T) {
	r := report.NewStageReport("acquisition", 7, []string{"a", "b", "c"}, 1500*time.Millisecond, nil)
	if r.Total != 10 || r.SuccessRate != 0.7 || r.Duration != 1.5 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Errors == nil || r.Failures == nil {
		t.Fatalf("expected non-nil slices for JSON output, got %+v", r)
	}
}

func TestWriteReplacesReport(t *testing.T) {
	dir := t.TempDir()
	first := report.Acquisition{TotalAnimations: 1, Successful: 1, FailedList: []string{}}
	if _, err := report.Write(dir, report.AcquisitionFile, first); err != nil {
		t.Fatalf("Write: %v", err)
	}
	second := report.Acquisition{TotalAnimations: 2, Successful: 1, Failed: 1, FailedList: []string{"Idle"}, SuccessRate: 0.5}
	path, err := report.Write(dir, report.AcquisitionFile, second)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != filepath.Join(dir, report.AcquisitionFile) {
		t.Fatalf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"timestamp", "total_animations", "successful", "failed", "failed_list", "success_rate"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
	if decoded["total_animations"].(float64) != 2 {
		t.Fatalf("expected replaced report, got %s", data)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the report file, got %d entries", len(entries))
	}
}

func TestBytesToMB(t *testing.T) {
	if got := report.BytesToMB(3 * 1024 * 1024 / 2); got != 1.5 {
		t.Fatalf("BytesToMB = %v, want 1.5", got)
	}
}
