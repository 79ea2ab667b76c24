package preflight

import (
	"context"
	"fmt"

	"github.com/Noquela/sands-of-duat/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check that applies to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	dirs := []struct{ name, path string }{
		{"Work directory", cfg.Paths.WorkDir},
		{"Download directory", cfg.Paths.DownloadDir},
		{"Raw directory", cfg.Paths.RawDir},
		{"Converted directory", cfg.Paths.ConvertedDir},
		{"Organized directory", cfg.Paths.OrganizedDir},
		{"Reports directory", cfg.Paths.ReportsDir},
	}
	results := make([]Result, 0, len(dirs)+4)
	for _, d := range dirs {
		results = append(results, CheckDirectoryAccess(d.name, d.path))
	}
	if cfg.Pipeline.MinFreeDiskMiB > 0 {
		results = append(results, CheckFreeSpace("Free disk space", cfg.Paths.WorkDir, uint64(cfg.Pipeline.MinFreeDiskMiB)))
	}
	results = append(results, CheckFileReadable("Catalog", cfg.Paths.CatalogPath))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		res := Result{Name: status.Name, Passed: status.Available || status.Optional}
		switch {
		case status.Available:
			res.Detail = fmt.Sprintf("%s (found)", status.Command)
		case status.Optional:
			res.Detail = fmt.Sprintf("%s (optional: %s)", status.Command, status.Detail)
		default:
			res.Detail = status.Detail
		}
		results = append(results, res)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
