package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Outcome is the per-item conversion result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Item is one raw clip awaiting conversion. Name is the rename.
type Item struct {
	Name     string
	Category string
	Source   string
}

// Result is the immutable record of one converted item.
type Result struct {
	Name     string
	Category string
	Source   string
	Output   string
	Outcome  Outcome
	Strategy Strategy
	Size     int64
	Skipped  bool
	Attempts []string
	Err      error
}

// Succeeded reports whether an output exists for the item.
func (r Result) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// Summary aggregates a conversion run in input order.
type Summary struct {
	Results  []Result
	Duration time.Duration
	Canceled bool
}

// Counts returns success and failure totals.
func (s Summary) Counts() (successes, failures int) {
	for _, r := range s.Results {
		if r.Succeeded() {
			successes++
		} else {
			failures++
		}
	}
	return successes, failures
}

// StageReport condenses the summary for the pipeline report.
func (s Summary) StageReport() report.StageReport {
	var (
		successes int
		failed    []string
		errs      []string
	)
	for _, r := range s.Results {
		if r.Succeeded() {
			successes++
			continue
		}
		failed = append(failed, r.Name)
		errs = append(errs, fmt.Sprintf("%s: %v", r.Name, r.Err))
	}
	return report.NewStageReport("conversion", successes, failed, s.Duration, errs)
}

// Options controls the conversion stage.
type Options struct {
	RawDir       string
	ConvertedDir string
	OrganizedDir string
	Extension    string
	Workers      int
}

// OptionsFromConfig derives stage options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RawDir:       cfg.Paths.RawDir,
		ConvertedDir: cfg.Paths.ConvertedDir,
		OrganizedDir: cfg.Paths.OrganizedDir,
		Extension:    cfg.OutputExtension(),
		Workers:      cfg.Converter.Workers,
	}
}

// ChainFromConfig builds the configured converter chain: the primary
// command when set, then the in-process fallback when enabled.
func ChainFromConfig(cfg *config.Config, logger *slog.Logger, opts ...ExternalOption) (*Chain, error) {
	var converters []Converter
	if strings.TrimSpace(cfg.Converter.PrimaryCommand) != "" {
		primary, err := NewExternal(cfg.Converter.PrimaryCommand, cfg.PrimaryWait(), logger, opts...)
		if err != nil {
			return nil, err
		}
		converters = append(converters, primary)
	}
	if cfg.Converter.FallbackEnabled {
		converters = append(converters, NewInProcess(logger))
	}
	if len(converters) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "conversion", "build chain", "no converter configured", nil)
	}
	return NewChain(logger, converters...), nil
}

// Stage converts raw clips into the converted directory.
type Stage struct {
	chain  *Chain
	opts   Options
	logger *slog.Logger
}

// New builds a conversion stage.
func New(chain *Chain, opts Options, logger *slog.Logger) *Stage {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Extension == "" {
		opts.Extension = ".glb"
	}
	return &Stage{chain: chain, opts: opts, logger: logging.NewComponentLogger(logger, "conversion")}
}

// Discover lists the raw clips sorted by name. Categories are filled from
// cat when it knows the rename; cat may be nil.
func (s *Stage) Discover(cat *catalog.Catalog) ([]Item, error) {
	entries, err := os.ReadDir(s.opts.RawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list raw dir: %w", err)
	}
	var items []Item
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		item := Item{Name: stem, Source: filepath.Join(s.opts.RawDir, name)}
		if cat != nil {
			if e, ok := cat.LookupRename(stem); ok {
				item.Category = e.Category
			}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Run converts items with at most Workers in flight. Results keep input
// order. On cancellation items that never started or were interrupted are
// left out and ctx.Err() is returned with the partial summary.
func (s *Stage) Run(ctx context.Context, items []Item) (Summary, error) {
	ctx = services.WithStage(ctx, "conversion")
	started := time.Now()
	if err := os.MkdirAll(s.opts.ConvertedDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("ensure converted dir: %w", err)
	}

	results := make([]Result, len(items))
	done := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := s.convert(gctx, items[i])
			if !res.Succeeded() && gctx.Err() != nil {
				// Interrupted mid-flight; a resumed run converts it again.
				return nil
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Duration: time.Since(started)}
	for i, ok := range done {
		if ok {
			summary.Results = append(summary.Results, results[i])
		}
	}
	summary.Canceled = ctx.Err() != nil

	successes, failures := summary.Counts()
	s.logger.Info("conversion finished",
		logging.Int("converted", successes),
		logging.Int("failed", failures),
		logging.Int("workers", s.opts.Workers),
		logging.Bool("canceled", summary.Canceled),
	)
	if summary.Canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Stage) convert(ctx context.Context, item Item) (res Result) {
	ctx = services.WithItem(ctx, item.Name)
	ctx = services.WithCategory(ctx, item.Category)
	logger := logging.WithContext(ctx, s.logger)

	res = Result{Name: item.Name, Category: item.Category, Source: item.Source}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome, res.Strategy, res.Output, res.Size, res.Skipped = OutcomeFailure, "", "", 0, false
			res.Err = services.Wrap(services.ErrConverterUnavailable, "conversion", "convert",
				fmt.Sprintf("converter panicked on %s", item.Source), fmt.Errorf("%v", r))
			logging.ErrorWithContext(logger, "converter panicked", "conversion_panic",
				logging.Error(res.Err),
				logging.String(logging.FieldImpact, "item marked failed; remaining items continue"),
			)
		}
	}()
	dst := filepath.Join(s.opts.ConvertedDir, item.Name+s.opts.Extension)

	for _, existing := range s.existingOutputs(item) {
		if size, ok := fileutil.NonEmptyFile(existing); ok {
			logger.Info("converted output already present; skipping", logging.String("path", existing))
			res.Outcome, res.Strategy, res.Output, res.Size, res.Skipped = OutcomeSuccess, StrategyExisting, existing, size, true
			return res
		}
	}

	strategy, attempts, err := s.chain.Convert(ctx, item.Source, dst)
	for _, a := range attempts {
		res.Attempts = append(res.Attempts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	if err != nil {
		res.Outcome = OutcomeFailure
		res.Err = err
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install the primary converter or supply glTF/OBJ input"),
		)
		return res
	}

	size, _ := fileutil.NonEmptyFile(dst)
	res.Outcome, res.Strategy, res.Output, res.Size = OutcomeSuccess, strategy, dst, size
	logger.Info("clip converted",
		logging.String("strategy", string(strategy)),
		logging.String("output", dst),
		logging.Int64("bytes", size),
	)
	return res
}

func (s *Stage) existingOutputs(item Item) []string {
	name := item.Name + s.opts.Extension
	paths := []string{filepath.Join(s.opts.ConvertedDir, name)}
	if item.Category != "" && s.opts.OrganizedDir != "" {
		paths = append(paths, filepath.Join(s.opts.OrganizedDir, item.Category, name))
	}
	return paths
}
