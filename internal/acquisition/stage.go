package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/download"
	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Options controls the acquisition stage.
type Options struct {
	RawDir          string
	DownloadDir     string
	ReportsDir      string
	ItemDelay       time.Duration
	DownloadTimeout time.Duration
	PollInterval    time.Duration
}

// OptionsFromConfig derives stage options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RawDir:          cfg.Paths.RawDir,
		DownloadDir:     cfg.Paths.DownloadDir,
		ReportsDir:      cfg.Paths.ReportsDir,
		ItemDelay:       cfg.ItemDelay(),
		DownloadTimeout: cfg.DownloadWait(),
		PollInterval:    cfg.PollEvery(),
	}
}

// Stage runs acquisition for a catalog.
type Stage struct {
	session *remote.Guard
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a stage over session. The session is wrapped in a remote.Guard
// unless it already is one.
func New(session remote.Session, opts Options, logger *slog.Logger) *Stage {
	guard, ok := session.(*remote.Guard)
	if !ok {
		guard = remote.NewGuard(session, logger)
	}
	return &Stage{
		session: guard,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "acquisition"),
		now:     time.Now,
	}
}

// Run acquires every catalog entry in category order. It returns ctx.Err()
// alongside the partial summary when cancelled; item failures never produce
// an error.
func (s *Stage) Run(ctx context.Context, cat *catalog.Catalog) (Summary, error) {
	ctx = services.WithStage(ctx, "acquisition")
	summary := Summary{Started: s.now()}
	export := remote.ExportOptionsFrom(cat.Settings())
	ext := export.Extension()

	for _, dir := range []string{s.opts.RawDir, s.opts.DownloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, fmt.Errorf("ensure %s: %w", dir, err)
		}
	}

	remoteTouched := false
	for _, entry := range cat.Entries() {
		if ctx.Err() != nil {
			summary.Canceled = true
			break
		}
		target := filepath.Join(s.opts.RawDir, entry.Rename+ext)
		if _, ok := fileutil.NonEmptyFile(target); ok {
			s.logger.Info("raw clip already present; skipping",
				logging.String(logging.FieldItem, entry.CanonicalName),
				logging.String(logging.FieldRename, entry.Rename),
			)
			summary.Results = append(summary.Results, Result{
				Name: entry.CanonicalName, Category: entry.Category, Rename: entry.Rename,
				Outcome: OutcomeSuccess, State: StateIdle, Path: target, Skipped: true, At: s.now(),
			})
			continue
		}

		if remoteTouched {
			if err := sleep(ctx, s.opts.ItemDelay); err != nil {
				summary.Canceled = true
				break
			}
		}
		remoteTouched = true

		result := s.acquire(ctx, entry, export, target)
		if ctx.Err() != nil && !result.Succeeded() {
			summary.Canceled = true
			break
		}
		summary.Results = append(summary.Results, result)
	}
	summary.Duration = s.now().Sub(summary.Started)

	successes, failures := summary.Counts()
	s.logger.Info("acquisition finished",
		logging.Int("successful", successes),
		logging.Int("failed", failures),
		logging.Float64("success_rate", summary.SuccessRate()),
		logging.Bool("canceled", summary.Canceled),
	)

	if s.opts.ReportsDir != "" {
		if _, err := report.Write(s.opts.ReportsDir, report.AcquisitionFile, summary.Report()); err != nil {
			logging.WarnWithContext(s.logger, "acquisition report not written", "report_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "acquisition results only available in logs"),
			)
		}
	}
	if summary.Canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Stage) acquire(ctx context.Context, entry catalog.Entry, export remote.ExportOptions, target string) Result {
	ctx = services.WithItem(ctx, entry.CanonicalName)
	ctx = services.WithCategory(ctx, entry.Category)
	logger := logging.WithContext(ctx, s.logger)

	m := newMachine(func(from, to State) {
		logger.Debug("item transition", logging.String("from", string(from)), logging.String("to", string(to)))
	})
	res := Result{Name: entry.CanonicalName, Category: entry.Category, Rename: entry.Rename}
	fail := func(outcome Outcome, err error) Result {
		res.Outcome = outcome
		res.State = m.state
		res.Reason = err.Error()
		res.At = s.now()
		logging.WarnWithContext(logger, "item acquisition failed", "item_"+string(outcome),
			logging.String("outcome", string(outcome)),
			logging.String("state", string(m.state)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(outcome)),
			logging.String(logging.FieldImpact, "item will be missing from converted output"),
		)
		return res
	}

	if err := s.session.Login(ctx); err != nil {
		return fail(OutcomeSessionError, err)
	}

	if err := m.to(StateSearching); err != nil {
		return fail(OutcomeSessionError, err)
	}
	handle, err := s.session.Search(ctx, entry.CanonicalName)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			_ = m.to(StateNotFound)
			return fail(OutcomeNotFound, err)
		}
		return fail(OutcomeSessionError, err)
	}
	if err := m.to(StateFound); err != nil {
		return fail(OutcomeSessionError, err)
	}

	if err := s.session.ConfigureExport(ctx, handle, export); err != nil {
		return fail(OutcomeSessionError, err)
	}
	if err := m.to(StateExportConfigured); err != nil {
		return fail(OutcomeSessionError, err)
	}

	snapshot, err := download.Take(s.opts.DownloadDir)
	if err != nil {
		return fail(OutcomeSessionError, err)
	}
	token, err := s.session.TriggerDownload(ctx, handle, s.opts.DownloadDir)
	if err != nil {
		return fail(OutcomeSessionError, err)
	}
	if err := m.to(StateDownloading); err != nil {
		return fail(OutcomeSessionError, err)
	}
	if token == nil {
		logger.Debug("session cannot correlate downloads; watching directory")
		token = download.NewDirectoryToken(snapshot, export.Extension(), s.opts.PollInterval, s.logger)
	}

	waitCtx := ctx
	if s.opts.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.opts.DownloadTimeout)
		defer cancel()
	}
	completed, err := token.Wait(waitCtx)
	if err != nil {
		if ctx.Err() == nil && (errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)) {
			_ = m.to(StateTimedOut)
			return fail(OutcomeTimeout, err)
		}
		return fail(OutcomeSessionError, err)
	}
	if err := m.to(StateDownloaded); err != nil {
		return fail(OutcomeSessionError, err)
	}

	if err := fileutil.MoveFile(completed.Path, target); err != nil {
		return fail(OutcomeSessionError, fmt.Errorf("rename %s: %w", completed.Path, err))
	}
	if err := m.to(StateRenamed); err != nil {
		return fail(OutcomeSessionError, err)
	}

	logger.Info("item acquired",
		logging.String(logging.FieldRename, entry.Rename),
		logging.String("path", target),
	)
	res.Outcome = OutcomeSuccess
	res.State = m.state
	res.Path = target
	res.At = s.now()
	return res
}

func hintFor(outcome Outcome) string {
	switch outcome {
	case OutcomeNotFound:
		return "check the canonical name against the remote catalog"
	case OutcomeTimeout:
		return "raise remote.download_timeout or rerun to retry"
	default:
		return "check remote selectors and session state"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
