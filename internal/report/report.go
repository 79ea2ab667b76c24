package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	AcquisitionFile = "acquisition_report.json"
	ConversionFile  = "conversion_report.json"
	PipelineFile    = "pipeline_report.json"
)

// SuccessRate returns successes/(successes+failures), or 0 with no attempts.
func SuccessRate(successes, failures int) float64 {
	if successes < 0 {
		successes = 0
	}
	if failures < 0 {
		failures = 0
	}
	total := successes + failures
	if total == 0 {
		return 0
	}
	return float64(successes) / float64(total)
}

// StageReport is the common per-stage summary.
type StageReport struct {
	Stage       string   `json:"stage"`
	Total       int      `json:"total_items"`
	Successes   int      `json:"success_count"`
	Failures    []string `json:"failures"`
	SuccessRate float64  `json:"success_rate"`
	Duration    float64  `json:"duration_seconds"`
	Errors      []string `json:"errors"`
}

// NewStageReport fills the derived fields from the raw counts.
func NewStageReport(stage string, successes int, failures []string, duration time.Duration, errs []string) StageReport {
	return StageReport{
		Stage:       stage,
		Total:       successes + len(failures),
		Successes:   successes,
		Failures:    nonNil(failures),
		SuccessRate: SuccessRate(successes, len(failures)),
		Duration:    duration.Seconds(),
		Errors:      nonNil(errs),
	}
}

// CategoryTally counts acquisition outcomes for one category.
type CategoryTally struct {
	Successful int      `json:"successful"`
	Failed     []string `json:"failed"`
}

// Acquisition is the acquisition_report.json document.
type Acquisition struct {
	Timestamp       time.Time                `json:"timestamp"`
	TotalAnimations int                      `json:"total_animations"`
	Successful      int                      `json:"successful"`
	Failed          int                      `json:"failed"`
	FailedList      []string                 `json:"failed_list"`
	SuccessRate     float64                  `json:"success_rate"`
	Categories      map[string]CategoryTally `json:"categories"`
}

// ProcessingSummary is the aggregate block of the conversion report.
type ProcessingSummary struct {
	TotalProcessed  int            `json:"total_processed"`
	TotalGodotReady int            `json:"total_godot_ready"`
	TotalSizeMB     float64        `json:"total_size_mb"`
	Categories      map[string]int `json:"categories"`
}

// Conversion is the conversion_report.json document.
type Conversion struct {
	ProcessingSummary ProcessingSummary   `json:"processing_summary"`
	FileList          []string            `json:"file_list"`
	GodotStructure    map[string][]string `json:"godot_structure"`
}

// Pipeline is the pipeline_report.json document.
type Pipeline struct {
	RunID                string        `json:"run_id"`
	StartedAt            time.Time     `json:"started_at"`
	Success              bool          `json:"success"`
	StepsCompleted       []string      `json:"steps_completed"`
	StepsFailed          []string      `json:"steps_failed"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`
	Errors               []string      `json:"errors"`
	Stages               []StageReport `json:"stages"`
	Acquisition          *Acquisition  `json:"acquisition,omitempty"`
	Conversion           *Conversion   `json:"conversion,omitempty"`
	Aborted              bool          `json:"aborted,omitempty"`
	Canceled             bool          `json:"canceled,omitempty"`
}

// BytesToMB converts a byte count to megabytes rounded to two decimals.
func BytesToMB(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

// Write stores v as indented JSON at dir/name, replacing any previous report
// atomically.
func Write(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure report dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	data = append(data, '\n')
	target := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return target, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
