package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/pipeline"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
	"github.com/Noquela/sands-of-duat/internal/testsupport"
)

type stubSession struct {
	mu         sync.Mutex
	missing    map[string]bool
	searched   []string
	closed     bool
	onDownload func(name string)
}

func (s *stubSession) Login(context.Context) error { return nil }

func (s *stubSession) Search(_ context.Context, name string) (remote.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searched = append(s.searched, name)
	if s.missing[name] {
		return remote.Handle{}, services.Wrap(services.ErrNotFound, "acquisition", "search", name, nil)
	}
	return remote.Handle{Name: name, ID: name}, nil
}

func (s *stubSession) ConfigureExport(context.Context, remote.Handle, remote.ExportOptions) error {
	return nil
}

func (s *stubSession) TriggerDownload(_ context.Context, h remote.Handle, dir string) (remote.Download, error) {
	if s.onDownload != nil {
		s.onDownload(h.Name)
	}
	path := filepath.Join(dir, "guid-"+strings.ReplaceAll(h.Name, " ", "-"))
	if err := os.WriteFile(path, []byte("Kaydara FBX Binary "+h.Name), 0o644); err != nil {
		return nil, err
	}
	return completedDownload{path: path}, nil
}

func (s *stubSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type completedDownload struct{ path string }

func (d completedDownload) Wait(context.Context) (remote.Completed, error) {
	return remote.Completed{Path: d.path}, nil
}

type recordingDecider struct {
	decision pipeline.Decision
	calls    []string
	errs     []error
}

func (r *recordingDecider) Decide(_ context.Context, stage string, err error) pipeline.Decision {
	r.calls = append(r.calls, stage)
	r.errs = append(r.errs, err)
	return r.decision
}

func newConfig(t *testing.T, catalogBody string) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithCatalog(catalogBody),
		testsupport.WithPrimaryCommand("fakeconv {input} {output}"),
		testsupport.WithFallback(false),
	)
	testsupport.StubBinary(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "fakeconv", `cp "$1" "$2"`)
	return cfg
}

func newPipeline(cfg *config.Config, session *stubSession, opts ...pipeline.Option) *pipeline.Pipeline {
	opts = append([]pipeline.Option{
		pipeline.WithSessionFactory(func(context.Context) (remote.Session, error) { return session, nil }),
	}, opts...)
	return pipeline.New(cfg, logging.NewNop(), opts...)
}

func readPipelineReport(t *testing.T, cfg *config.Config) report.Pipeline {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Paths.ReportsDir, report.PipelineFile))
	if err != nil {
		t.Fatalf("read pipeline report: %v", err)
	}
	var doc report.Pipeline
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode pipeline report: %v", err)
	}
	return doc
}

func tenClipCatalog() string {
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("%q", fmt.Sprintf("Clip %02d", i))
	}
	return `{
  "project_name": "Sands of Duat",
  "animation_settings": {"fps": 30, "format": "fbx", "with_skin": true},
  "locomotion": [` + strings.Join(names[:5], ", ") + `],
  "combat": [` + strings.Join(names[5:], ", ") + `]
}`
}

func TestRunCompletesAllStages(t *testing.T) {
	cfg := newConfig(t, testsupport.SampleCatalog)
	session := &stubSession{}

	res, err := newPipeline(cfg, session).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Success || res.Aborted || res.Canceled {
		t.Fatalf("expected clean success, got %+v", res)
	}
	if len(res.Stages) != 4 {
		t.Fatalf("expected 4 stage outcomes, got %+v", res.Stages)
	}
	for _, stage := range res.Stages {
		if !stage.Completed {
			t.Fatalf("stage %s did not complete: %v", stage.Name, stage.Err)
		}
	}
	if !session.closed {
		t.Fatal("expected remote session to be closed")
	}

	placed := filepath.Join(cfg.Paths.OrganizedDir, "combat", "khopesh_attack_1.glb")
	if _, ok := fileutil.NonEmptyFile(placed); !ok {
		t.Fatalf("expected organized clip at %s", placed)
	}

	doc := readPipelineReport(t, cfg)
	if !doc.Success || doc.RunID != res.RunID {
		t.Fatalf("unexpected report %+v", doc)
	}
	want := []string{pipeline.StageSetup, pipeline.StageAcquisition, pipeline.StageConversion, pipeline.StageOrganization}
	if strings.Join(doc.StepsCompleted, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected steps_completed %v", doc.StepsCompleted)
	}
	if doc.Acquisition == nil || doc.Acquisition.Successful != 3 {
		t.Fatalf("expected embedded acquisition report, got %+v", doc.Acquisition)
	}
	if doc.Conversion == nil || doc.Conversion.ProcessingSummary.TotalProcessed != 3 {
		t.Fatalf("expected embedded conversion report, got %+v", doc.Conversion)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || !runs[0].Success || runs[0].Converted != 3 {
		t.Fatalf("unexpected history %+v", runs)
	}
	items, err := store.ItemResults(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("ItemResults: %v", err)
	}
	if len(items) != 9 {
		t.Fatalf("expected 9 item results across stages, got %d", len(items))
	}
}

func TestRunBelowThresholdAbortsAtDecisionPoint(t *testing.T) {
	cfg := newConfig(t, tenClipCatalog())
	session := &stubSession{missing: map[string]bool{"Clip 01": true, "Clip 04": true, "Clip 08": true}}
	decider := &recordingDecider{decision: pipeline.DecisionAbort}

	res, err := newPipeline(cfg, session, pipeline.WithDecider(decider)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(decider.calls) != 1 || decider.calls[0] != pipeline.StageAcquisition {
		t.Fatalf("expected one decision for acquisition, got %v", decider.calls)
	}
	if !errors.Is(decider.errs[0], services.ErrStageThreshold) {
		t.Fatalf("expected threshold error, got %v", decider.errs[0])
	}
	if !res.Aborted || res.Success {
		t.Fatalf("expected aborted failure, got %+v", res)
	}
	if res.Acquisition.SuccessRate() != 0.7 {
		t.Fatalf("expected success rate 0.7, got %v", res.Acquisition.SuccessRate())
	}
	if res.Conversion != nil {
		t.Fatal("conversion must not run after abort")
	}

	doc := readPipelineReport(t, cfg)
	if len(doc.StepsFailed) != 1 || doc.StepsFailed[0] != pipeline.StageAcquisition {
		t.Fatalf("unexpected steps_failed %v", doc.StepsFailed)
	}
	if !doc.Aborted || doc.Success {
		t.Fatalf("unexpected report flags %+v", doc)
	}
}

func TestRunBelowThresholdContinues(t *testing.T) {
	cfg := newConfig(t, tenClipCatalog())
	cfg.Pipeline.ContinueOnCriticalFailure = true
	session := &stubSession{missing: map[string]bool{"Clip 01": true, "Clip 04": true, "Clip 08": true}}

	res, err := newPipeline(cfg, session).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Aborted {
		t.Fatal("flag decider should continue")
	}
	if res.Stages[1].Completed || res.Stages[1].Decision != pipeline.DecisionContinue {
		t.Fatalf("unexpected acquisition outcome %+v", res.Stages[1])
	}
	converted, _ := res.Conversion.Counts()
	if converted != 7 {
		t.Fatalf("expected 7 converted clips, got %d", converted)
	}
	if !res.Success {
		t.Fatalf("three completed stages with output should succeed: %+v", res.Report.StepsCompleted)
	}
}

func TestRunCatalogLoadFailureWritesNoReport(t *testing.T) {
	cfg := newConfig(t, `{"locomotion": ["Idle"]}`)
	session := &stubSession{}

	_, err := newPipeline(cfg, session).Run(context.Background())
	if !errors.Is(err, services.ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.ReportsDir, report.PipelineFile)); !os.IsNotExist(statErr) {
		t.Fatalf("expected no pipeline report, stat err %v", statErr)
	}
	if len(session.searched) != 0 {
		t.Fatal("no stage should run after a catalog failure")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	cfg := newConfig(t, testsupport.SampleCatalog)
	lock, err := pipeline.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Unlock()

	if _, err := newPipeline(cfg, &stubSession{}).Run(context.Background()); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunSetupFailureConsultsDecider(t *testing.T) {
	cfg := newConfig(t, testsupport.SampleCatalog)
	cfg.Converter.PrimaryCommand = "missing-converter-binary {input} {output}"
	decider := &recordingDecider{decision: pipeline.DecisionAbort}
	session := &stubSession{}

	res, err := newPipeline(cfg, session, pipeline.WithDecider(decider)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(decider.calls) != 1 || decider.calls[0] != pipeline.StageSetup {
		t.Fatalf("expected setup decision, got %v", decider.calls)
	}
	if !errors.Is(decider.errs[0], services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", decider.errs[0])
	}
	if len(res.Stages) != 1 || len(session.searched) != 0 {
		t.Fatalf("expected run to stop after setup, got %+v", res.Stages)
	}
	if doc := readPipelineReport(t, cfg); len(doc.Stages) != 1 || doc.Stages[0].Stage != pipeline.StageSetup {
		t.Fatalf("expected setup stage report, got %+v", doc.Stages)
	}
}

func TestRunCanceledStillWritesReport(t *testing.T) {
	cfg := newConfig(t, testsupport.SampleCatalog)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := &stubSession{onDownload: func(string) { cancel() }}
	decider := &recordingDecider{decision: pipeline.DecisionContinue}

	res, err := newPipeline(cfg, session, pipeline.WithDecider(decider)).Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Canceled || res.Success {
		t.Fatalf("expected canceled run, got %+v", res)
	}
	if len(decider.calls) != 0 {
		t.Fatalf("cancellation must not reach the decision point, got %v", decider.calls)
	}
	if res.Conversion != nil {
		t.Fatal("conversion must not start after cancellation")
	}
	if doc := readPipelineReport(t, cfg); !doc.Canceled {
		t.Fatalf("expected canceled report, got %+v", doc)
	}
	runs, err := testsupport.MustOpenHistory(t, cfg).RecentRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || !runs[0].Canceled {
		t.Fatalf("expected canceled run in history, got %+v (%v)", runs, err)
	}
}

func TestRunWithoutHistory(t *testing.T) {
	cfg := newConfig(t, testsupport.SampleCatalog)
	if _, err := newPipeline(cfg, &stubSession{}, pipeline.WithoutHistory()).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := os.Stat(cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no history database, stat err %v", err)
	}
}

func TestFlagDecider(t *testing.T) {
	if got := pipeline.FlagDecider(true).Decide(context.Background(), "setup", nil); got != pipeline.DecisionContinue {
		t.Fatalf("expected continue, got %s", got)
	}
	if got := pipeline.FlagDecider(false).Decide(context.Background(), "setup", nil); got != pipeline.DecisionAbort {
		t.Fatalf("expected abort, got %s", got)
	}
}

func TestWarnUnreadableExports(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		fallback bool
		want     bool
	}{
		{"fbx with fallback", "fbx", true, true},
		{"obj with fallback", "obj", true, false},
		{"fbx without fallback", "fbx", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithFallback(tt.fallback))
			cat, err := catalog.Parse(strings.NewReader(strings.Replace(testsupport.SampleCatalog, `"format": "fbx"`, `"format": "`+tt.format+`"`, 1)))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			logPath := filepath.Join(t.TempDir(), "run.log")
			logger, err := logging.New(logging.Options{Outputs: []string{logPath}})
			if err != nil {
				t.Fatalf("logging.New: %v", err)
			}
			if got := pipeline.New(cfg, logger).WarnUnreadableExports(context.Background(), cat); got != tt.want {
				t.Fatalf("WarnUnreadableExports = %v, want %v", got, tt.want)
			}
			content, _ := os.ReadFile(logPath)
			if logged := strings.Contains(string(content), "event_type=fallback_inert"); logged != tt.want {
				t.Fatalf("expected logged=%v, got %q", tt.want, content)
			}
		})
	}
}
