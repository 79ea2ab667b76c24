package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Strategy names how an output was produced.
type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
	StrategyExisting Strategy = "existing"
)

// Converter writes dst from src.
type Converter interface {
	Name() Strategy
	Convert(ctx context.Context, src, dst string) error
}

// Attempt records one failed converter invocation.
type Attempt struct {
	Strategy Strategy
	Err      error
}

// Chain tries converters in order until one produces output.
type Chain struct {
	converters []Converter
	logger     *slog.Logger
}

// NewChain builds a chain; nil converters are skipped.
func NewChain(logger *slog.Logger, converters ...Converter) *Chain {
	chain := &Chain{logger: logging.NewComponentLogger(logger, "conversion")}
	for _, c := range converters {
		if c != nil {
			chain.converters = append(chain.converters, c)
		}
	}
	return chain
}

// Len reports how many converters the chain holds.
func (c *Chain) Len() int { return len(c.converters) }

// Convert runs the chain. Each converter writes to a staging path next to dst
// that is renamed into place only after it succeeds, so a failed attempt never
// leaves a partial dst behind. On success it returns the winning strategy and
// the attempts that failed before it. When every converter fails the error
// wraps services.ErrConverterUnavailable.
func (c *Chain) Convert(ctx context.Context, src, dst string) (Strategy, []Attempt, error) {
	staging := stagingPath(dst)
	defer os.Remove(staging)

	var attempts []Attempt
	for _, conv := range c.converters {
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}
		_ = os.Remove(staging)
		err := conv.Convert(ctx, src, staging)
		if err == nil {
			if _, ok := fileutil.NonEmptyFile(staging); !ok {
				err = fmt.Errorf("%s converter reported success but produced no output", conv.Name())
			}
		}
		if err == nil {
			if err = os.Rename(staging, dst); err == nil {
				return conv.Name(), attempts, nil
			}
			err = fmt.Errorf("promote %s output: %w", conv.Name(), err)
		}
		attempts = append(attempts, Attempt{Strategy: conv.Name(), Err: err})
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "converter failed", "converter_failed",
			logging.String("strategy", string(conv.Name())),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "next converter in the chain will be tried"),
			logging.String(logging.FieldImpact, "conversion continues with the next strategy"),
		)
	}
	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return "", attempts, services.Wrap(services.ErrConverterUnavailable, "conversion", "convert",
		fmt.Sprintf("no strategy converted %s", src), errors.Join(errs...))
}

// stagingPath keeps the extension of dst since converters pick the output
// format from it. The leading dot hides it from directory scans.
func stagingPath(dst string) string {
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(filepath.Base(dst), ext)
	return filepath.Join(filepath.Dir(dst), "."+base+".partial"+ext)
}
