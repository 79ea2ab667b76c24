package conversion

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/scene"
)

// InProcess converts with the scene package, without external tools.
type InProcess struct {
	logger *slog.Logger
}

// NewInProcess builds the fallback converter.
func NewInProcess(logger *slog.Logger) *InProcess {
	return &InProcess{logger: logging.NewComponentLogger(logger, "converter.fallback")}
}

// Name implements Converter.
func (c *InProcess) Name() Strategy { return StrategyFallback }

// Convert flattens src into one cleaned mesh and writes dst. The mesh is
// named after the raw clip.
func (c *InProcess) Convert(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	stats, err := scene.Convert(src, dst, name)
	if err != nil {
		return err
	}
	logging.WithContext(ctx, c.logger).Debug("scene cleaned",
		logging.Int("merged_vertices", stats.MergedVertices),
		logging.Int("duplicate_faces", stats.DuplicateFaces),
		logging.Int("degenerate_faces", stats.DegenerateFaces),
		logging.Int("unreferenced_vertices", stats.UnreferencedVertices),
	)
	return nil
}
