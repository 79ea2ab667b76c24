package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Noquela/sands-of-duat/internal/acquisition"
	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/conversion"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/organizer"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/remote/browser"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Stage names in execution order.
const (
	StageSetup        = "setup"
	StageAcquisition  = "acquisition"
	StageConversion   = "conversion"
	StageOrganization = "organization"
)

// minCompletedStages is how many stages must complete for a run to succeed.
const minCompletedStages = 3

// ErrRunInProgress is returned when another run holds the work directory lock.
var ErrRunInProgress = errors.New("another duatanim run is already using the work directory")

// SessionFactory opens the remote session used by acquisition.
type SessionFactory func(ctx context.Context) (remote.Session, error)

// StageOutcome records how one stage of a run ended.
type StageOutcome struct {
	Name      string
	Critical  bool
	Completed bool
	Duration  time.Duration
	Err       error
	// Decision is set when the stage failed critically and the decider ran.
	Decision Decision
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Success    bool
	Aborted    bool
	Canceled   bool
	Stages     []StageOutcome
	Report     report.Pipeline
	ReportPath string

	Acquisition  *acquisition.Summary
	Conversion   *conversion.Summary
	Organization *organizer.Summary
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDecider replaces the flag-based critical failure decider.
func WithDecider(d Decider) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.decider = d
		}
	}
}

// WithSessionFactory replaces the browser-backed remote session.
func WithSessionFactory(f SessionFactory) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.sessions = f
		}
	}
}

// WithConverterOptions passes options to the primary external converter.
func WithConverterOptions(opts ...conversion.ExternalOption) Option {
	return func(p *Pipeline) {
		p.converterOpts = append(p.converterOpts, opts...)
	}
}

// WithoutHistory skips recording the run in the history ledger.
func WithoutHistory() Option {
	return func(p *Pipeline) {
		p.skipHistory = true
	}
}

// Pipeline runs the stages against one configuration.
type Pipeline struct {
	cfg           *config.Config
	base          *slog.Logger
	logger        *slog.Logger
	decider       Decider
	sessions      SessionFactory
	converterOpts []conversion.ExternalOption
	skipHistory   bool
	now           func() time.Time
}

// New builds a pipeline. The default decider follows
// pipeline.continue_on_critical_failure and the default session drives a
// browser.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:     cfg,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		decider: FlagDecider(cfg.Pipeline.ContinueOnCriticalFailure),
		now:     time.Now,
	}
	p.sessions = func(ctx context.Context) (remote.Session, error) {
		session, err := browser.Open(ctx, browser.OptionsFromConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AcquireLock takes the exclusive work directory lock. The caller must
// Unlock it.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work dir: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return lock, nil
}

// LoadCatalog reads the configured catalog.
func (p *Pipeline) LoadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(p.cfg.Paths.CatalogPath)
	if err != nil {
		logging.ErrorWithContext(p.logger, "catalog load failed", "catalog_load_failed",
			logging.String("path", p.cfg.Paths.CatalogPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the catalog JSON and rerun"),
		)
		return nil, err
	}
	return cat, nil
}

// Run executes a full pipeline run. The returned error is non-nil only for
// failures that prevent the run from starting: the lock is held or the
// catalog cannot be loaded. Stage failures are reported in the Result.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	lock, err := AcquireLock(p.cfg)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	cat, err := p.LoadCatalog()
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, res.RunID)
	logger := logging.WithContext(ctx, p.logger)
	started := p.now()
	res.Report = report.Pipeline{
		RunID:          res.RunID,
		StartedAt:      started.UTC(),
		StepsCompleted: []string{},
		StepsFailed:    []string{},
		Errors:         []string{},
		Stages:         []report.StageReport{},
	}
	logger.Info("pipeline started",
		logging.String("project", cat.ProjectName()),
		logging.Int("catalog_entries", cat.Len()),
		logging.Float64("acquisition_threshold", p.cfg.Pipeline.AcquisitionThreshold),
	)
	p.WarnUnreadableExports(ctx, cat)

	stages := []struct {
		name     string
		critical bool
		run      func(context.Context) (report.StageReport, error)
	}{
		{StageSetup, true, func(ctx context.Context) (report.StageReport, error) {
			return p.Setup(ctx)
		}},
		{StageAcquisition, true, func(ctx context.Context) (report.StageReport, error) {
			summary, err := p.Acquire(ctx, cat)
			res.Acquisition = &summary
			if err != nil {
				return summary.StageReport(), err
			}
			return summary.StageReport(), p.checkThreshold(summary)
		}},
		{StageConversion, false, func(ctx context.Context) (report.StageReport, error) {
			summary, err := p.Convert(ctx, cat)
			res.Conversion = &summary
			return summary.StageReport(), err
		}},
		{StageOrganization, false, func(ctx context.Context) (report.StageReport, error) {
			summary, err := p.Organize(ctx, cat)
			res.Organization = &summary
			return summary.StageReport(), err
		}},
	}
	for _, stage := range stages {
		if p.runStage(ctx, &res, stage.name, stage.critical, stage.run) {
			break
		}
	}

	p.finish(ctx, &res, cat, started)
	return res, nil
}

// runStage executes one stage and reports whether the run must stop.
func (p *Pipeline) runStage(ctx context.Context, res *Result, name string, critical bool, run func(context.Context) (report.StageReport, error)) bool {
	if ctx.Err() != nil {
		res.Canceled = true
		return true
	}
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	start := p.now()
	stageReport, err := run(stageCtx)
	outcome := StageOutcome{
		Name:      name,
		Critical:  critical,
		Completed: err == nil,
		Duration:  p.now().Sub(start),
		Err:       err,
	}
	if stageReport.Stage != "" {
		res.Report.Stages = append(res.Report.Stages, stageReport)
	}

	if err == nil {
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("duration", outcome.Duration),
		)
		res.Report.StepsCompleted = append(res.Report.StepsCompleted, name)
		res.Stages = append(res.Stages, outcome)
		return false
	}

	res.Report.StepsFailed = append(res.Report.StepsFailed, name)
	res.Report.Errors = append(res.Report.Errors, fmt.Sprintf("%s: %v", name, err))
	if ctx.Err() != nil {
		logging.WarnWithContext(logger, "stage interrupted", "stage_canceled",
			logging.Error(err),
			logging.String(logging.FieldImpact, "remaining stages skipped; rerun to resume"),
		)
		res.Canceled = true
		res.Stages = append(res.Stages, outcome)
		return true
	}

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
		logging.Bool("critical", critical),
	)
	if critical {
		outcome.Decision = p.decider.Decide(stageCtx, name, err)
		logger.Info("critical stage decision",
			logging.String(logging.FieldEventType, "critical_stage_decision"),
			logging.String("decision", string(outcome.Decision)),
		)
		if outcome.Decision != DecisionContinue {
			res.Aborted = true
			res.Stages = append(res.Stages, outcome)
			return true
		}
	}
	res.Stages = append(res.Stages, outcome)
	return false
}

func (p *Pipeline) checkThreshold(summary acquisition.Summary) error {
	rate := summary.SuccessRate()
	threshold := p.cfg.Pipeline.AcquisitionThreshold
	if rate >= threshold {
		return nil
	}
	successes, failures := summary.Counts()
	return services.Wrap(services.ErrStageThreshold, StageAcquisition, "success gate",
		fmt.Sprintf("success rate %.2f (%d/%d) below threshold %.2f", rate, successes, successes+failures, threshold), nil)
}

// finish settles the overall outcome, writes the pipeline report, and
// records the run. It runs even when ctx is canceled.
func (p *Pipeline) finish(ctx context.Context, res *Result, cat *catalog.Catalog, started time.Time) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, p.logger)

	processed := 0
	if res.Conversion != nil {
		processed, _ = res.Conversion.Counts()
	}
	res.Success = len(res.Report.StepsCompleted) >= minCompletedStages && processed > 0

	res.Report.Success = res.Success
	res.Report.Aborted = res.Aborted
	res.Report.Canceled = res.Canceled
	res.Report.TotalDurationSeconds = p.now().Sub(started).Seconds()
	if res.Acquisition != nil {
		doc := res.Acquisition.Report()
		res.Report.Acquisition = &doc
	}
	if res.Organization != nil {
		doc := res.Organization.Report(cat)
		res.Report.Conversion = &doc
	}

	path, err := report.Write(p.cfg.Paths.ReportsDir, report.PipelineFile, res.Report)
	if err != nil {
		logging.ErrorWithContext(logger, "pipeline report not written", "report_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check reports_dir permissions"),
		)
	}
	res.ReportPath = path

	if !p.skipHistory {
		if err := p.record(ctx, res, started); err != nil {
			logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history command will not list this run"),
			)
		}
	}

	logger.Info("pipeline finished",
		logging.Bool("success", res.Success),
		logging.Bool("aborted", res.Aborted),
		logging.Bool("canceled", res.Canceled),
		logging.Int("steps_completed", len(res.Report.StepsCompleted)),
		logging.Int("steps_failed", len(res.Report.StepsFailed)),
		logging.Int("processed", processed),
		logging.String("report", path),
	)
}
