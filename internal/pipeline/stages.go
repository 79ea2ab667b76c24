package pipeline

import (
	"context"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/acquisition"
	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/conversion"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/organizer"
	"github.com/Noquela/sands-of-duat/internal/preflight"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/scene"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Setup creates the working directories and runs the preflight checks.
func (p *Pipeline) Setup(ctx context.Context) (report.StageReport, error) {
	start := p.now()
	logger := logging.WithContext(ctx, p.logger)
	if err := p.cfg.EnsureDirectories(); err != nil {
		return report.NewStageReport(StageSetup, 0, []string{"directories"}, p.now().Sub(start), []string{err.Error()}),
			services.Wrap(services.ErrConfiguration, StageSetup, "ensure directories", "", err)
	}

	var (
		passed int
		failed []string
		errs   []string
	)
	for _, check := range preflight.RunAll(ctx, p.cfg) {
		if check.Passed {
			passed++
			logger.Debug("preflight check passed", logging.String("check", check.Name), logging.String("detail", check.Detail))
			continue
		}
		failed = append(failed, check.Name)
		errs = append(errs, check.Name+": "+check.Detail)
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
		)
	}
	stageReport := report.NewStageReport(StageSetup, passed, failed, p.now().Sub(start), errs)
	if len(failed) > 0 {
		return stageReport, services.Wrap(services.ErrConfiguration, StageSetup, "preflight", strings.Join(errs, "; "), nil)
	}
	return stageReport, nil
}

// Acquire opens a remote session and acquires every catalog entry. The
// success-rate gate is not applied here.
func (p *Pipeline) Acquire(ctx context.Context, cat *catalog.Catalog) (acquisition.Summary, error) {
	session, err := p.sessions(ctx)
	if err != nil {
		return acquisition.Summary{}, services.Wrap(services.ErrRemoteInteraction, StageAcquisition, "open session", "", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn("remote session close failed", logging.Error(err))
		}
	}()
	return acquisition.New(session, acquisition.OptionsFromConfig(p.cfg), p.base).Run(ctx, cat)
}

// WarnUnreadableExports logs once when the in-process fallback cannot read
// the format the catalog exports, so that every primary converter failure
// will end as an item failure. It reports whether it warned.
func (p *Pipeline) WarnUnreadableExports(ctx context.Context, cat *catalog.Catalog) bool {
	if !p.cfg.Converter.FallbackEnabled {
		return false
	}
	ext := remote.ExportOptionsFrom(cat.Settings()).Extension()
	if scene.Supports(ext) {
		return false
	}
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "in-process fallback cannot read exported clips", "fallback_inert",
		logging.String("export_extension", ext),
		logging.String(logging.FieldErrorHint, "make sure converter.primary_command is installed and works for "+ext+" input"),
		logging.String(logging.FieldImpact, "clips the primary converter fails on are recorded as conversion failures"),
	)
	return true
}

// Convert converts every raw clip with the configured converter chain.
func (p *Pipeline) Convert(ctx context.Context, cat *catalog.Catalog) (conversion.Summary, error) {
	chain, err := conversion.ChainFromConfig(p.cfg, p.base, p.converterOpts...)
	if err != nil {
		return conversion.Summary{}, err
	}
	stage := conversion.New(chain, conversion.OptionsFromConfig(p.cfg), p.base)
	items, err := stage.Discover(cat)
	if err != nil {
		return conversion.Summary{}, services.Wrap(services.ErrValidation, StageConversion, "discover raw clips", "", err)
	}
	return stage.Run(ctx, items)
}

// Organize places converted clips into category folders and writes the
// conversion report.
func (p *Pipeline) Organize(ctx context.Context, cat *catalog.Catalog) (organizer.Summary, error) {
	return organizer.New(organizer.OptionsFromConfig(p.cfg), p.base).Organize(ctx, cat)
}
