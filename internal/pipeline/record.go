package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Noquela/sands-of-duat/internal/history"
)

func (p *Pipeline) record(ctx context.Context, res *Result, started time.Time) error {
	store, err := history.Open(p.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.Run{
		ID:             res.RunID,
		StartedAt:      started,
		FinishedAt:     p.now(),
		Success:        res.Success,
		Aborted:        res.Aborted,
		Canceled:       res.Canceled,
		StepsCompleted: res.Report.StepsCompleted,
		StepsFailed:    res.Report.StepsFailed,
		ErrorCount:     len(res.Report.Errors),
	}
	for _, stage := range res.Report.Stages {
		run.ErrorCount += len(stage.Errors)
	}
	if res.Acquisition != nil {
		run.Acquired, _ = res.Acquisition.Counts()
	}
	if res.Conversion != nil {
		run.Converted, _ = res.Conversion.Counts()
	}
	if res.Organization != nil {
		run.Organized = len(res.Organization.Placements)
	}
	return store.RecordRun(ctx, run, itemResults(res))
}

func itemResults(res *Result) []history.ItemResult {
	var items []history.ItemResult
	if res.Acquisition != nil {
		for _, r := range res.Acquisition.Results {
			detail := r.Reason
			if r.Skipped {
				detail = "already present"
			}
			items = append(items, history.ItemResult{
				Stage: StageAcquisition, Name: r.Name, Category: r.Category,
				Outcome: string(r.Outcome), Detail: detail,
			})
		}
	}
	if res.Conversion != nil {
		for _, r := range res.Conversion.Results {
			detail := string(r.Strategy)
			if r.Err != nil {
				detail = r.Err.Error()
			}
			items = append(items, history.ItemResult{
				Stage: StageConversion, Name: r.Name, Category: r.Category,
				Outcome: string(r.Outcome), Detail: detail,
			})
		}
	}
	if res.Organization != nil {
		org := res.Organization
		for _, placement := range org.Placements {
			outcome := "placed"
			if !placement.Valid {
				outcome = "invalid"
			}
			items = append(items, history.ItemResult{
				Stage: StageOrganization, Name: placement.Name, Category: placement.Category,
				Outcome: outcome, Detail: placement.Path,
			})
		}
		for _, name := range org.Failed {
			items = append(items, history.ItemResult{
				Stage: StageOrganization, Name: name, Outcome: "failed", Detail: errorFor(org.Errors, name),
			})
		}
	}
	return items
}

func errorFor(errs []string, name string) string {
	prefix := fmt.Sprintf("%s: ", name)
	for _, e := range errs {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix)
		}
	}
	return ""
}
