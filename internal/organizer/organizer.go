package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/config"
	"github.com/Noquela/sands-of-duat/internal/fileutil"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// Options controls where the organizer reads and writes.
type Options struct {
	ConvertedDir string
	OrganizedDir string
	ReportsDir   string
	Extension    string
}

// OptionsFromConfig derives organizer options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConvertedDir: cfg.Paths.ConvertedDir,
		OrganizedDir: cfg.Paths.OrganizedDir,
		ReportsDir:   cfg.Paths.ReportsDir,
		Extension:    cfg.OutputExtension(),
	}
}

// Placement is one clip in its category folder.
type Placement struct {
	Name     string
	Category string
	Path     string
	Size     int64
	Moved    bool
	Valid    bool
}

// Pending is a converted clip left in the converted directory, either
// uncatalogued or because its move failed.
type Pending struct {
	File string
	Size int64
}

// Summary is the outcome of one organize pass.
type Summary struct {
	Placements []Placement
	Pending    []Pending
	Missing    []string
	Errors     []string
	Failed     []string
	Duration   time.Duration
}

// Organizer moves converted clips into category folders.
type Organizer struct {
	opts   Options
	logger *slog.Logger
}

// New builds an organizer.
func New(opts Options, logger *slog.Logger) *Organizer {
	if opts.Extension == "" {
		opts.Extension = ".glb"
	}
	return &Organizer{opts: opts, logger: logging.NewComponentLogger(logger, "organizer")}
}

// Organize places every catalog entry found in the converted directory.
func (o *Organizer) Organize(ctx context.Context, cat *catalog.Catalog) (Summary, error) {
	ctx = services.WithStage(ctx, "organization")
	started := time.Now()
	var summary Summary

	for _, entry := range cat.Entries() {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}
		file := entry.Rename + o.opts.Extension
		src := filepath.Join(o.opts.ConvertedDir, file)
		dst := filepath.Join(o.opts.OrganizedDir, entry.Category, file)
		logger := logging.WithContext(services.WithCategory(services.WithItem(ctx, entry.CanonicalName), entry.Category), o.logger)

		placement := Placement{Name: entry.Rename, Category: entry.Category, Path: dst}
		if _, err := os.Stat(src); err == nil {
			if err := fileutil.MoveFile(src, dst); err != nil {
				summary.Failed = append(summary.Failed, entry.Rename)
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: move: %v", entry.Rename, err))
				logging.ErrorWithContext(logger, "organize move failed", "organize_move_failed", logging.Error(err))
				continue
			}
			placement.Moved = true
		} else if _, err := os.Stat(dst); err != nil {
			summary.Missing = append(summary.Missing, entry.Rename)
			logger.Debug("clip not converted; nothing to organize")
			continue
		}

		size, err := ValidateOutput(dst, logger)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", entry.Rename, err))
		}
		placement.Size = size
		placement.Valid = err == nil
		summary.Placements = append(summary.Placements, placement)
		if placement.Moved {
			logger.Info("clip organized", logging.String("path", dst))
		}
	}
	pending, err := o.pending()
	if err != nil {
		return summary, err
	}
	summary.Pending = pending
	summary.Duration = time.Since(started)

	o.logger.Info("organization finished",
		logging.Int("placed", len(summary.Placements)),
		logging.Int("pending", len(summary.Pending)),
		logging.Int("missing", len(summary.Missing)),
		logging.Int("failed", len(summary.Failed)),
	)
	if o.opts.ReportsDir != "" {
		if _, err := report.Write(o.opts.ReportsDir, report.ConversionFile, summary.Report(cat)); err != nil {
			return summary, fmt.Errorf("write conversion report: %w", err)
		}
	}
	return summary, nil
}

// pending lists converted outputs still sitting in the converted directory.
func (o *Organizer) pending() ([]Pending, error) {
	entries, err := os.ReadDir(o.opts.ConvertedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list converted dir: %w", err)
	}
	var out []Pending
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), o.opts.Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Pending{File: name, Size: info.Size()})
	}
	return out, nil
}

// Report builds the conversion_report.json document. Every converted clip
// counts as processed wherever it now lives; only valid placements are game
// ready. Every catalog category appears in the structure, empty or not.
func (s Summary) Report(cat *catalog.Catalog) report.Conversion {
	doc := report.Conversion{
		ProcessingSummary: report.ProcessingSummary{Categories: map[string]int{}},
		FileList:          []string{},
		GodotStructure:    map[string][]string{},
	}
	for _, c := range cat.Categories() {
		doc.ProcessingSummary.Categories[c.Name] = 0
		doc.GodotStructure[c.Name] = []string{}
	}
	var total int64
	for _, p := range s.Placements {
		file := filepath.Base(p.Path)
		total += p.Size
		doc.FileList = append(doc.FileList, file)
		doc.ProcessingSummary.Categories[p.Category]++
		doc.GodotStructure[p.Category] = append(doc.GodotStructure[p.Category], file)
		if p.Valid {
			doc.ProcessingSummary.TotalGodotReady++
		}
	}
	for _, p := range s.Pending {
		total += p.Size
		doc.FileList = append(doc.FileList, p.File)
	}
	sort.Strings(doc.FileList)
	doc.ProcessingSummary.TotalProcessed = len(doc.FileList)
	doc.ProcessingSummary.TotalSizeMB = report.BytesToMB(total)
	return doc
}

// StageReport condenses the summary for the pipeline report.
func (s Summary) StageReport() report.StageReport {
	return report.NewStageReport("organization", len(s.Placements), s.Failed, s.Duration, s.Errors)
}
