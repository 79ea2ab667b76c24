package acquisition

import (
	"fmt"
	"time"

	"github.com/Noquela/sands-of-duat/internal/report"
)

// Outcome classifies how an item's acquisition ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeSessionError Outcome = "session_error"
)

// Result is the immutable record of one item.
type Result struct {
	Name     string
	Category string
	Rename   string
	Outcome  Outcome
	State    State
	Path     string
	Reason   string
	Skipped  bool
	At       time.Time
}

// Succeeded reports whether the raw file is in place.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Summary aggregates a whole acquisition run.
type Summary struct {
	Results  []Result
	Started  time.Time
	Duration time.Duration
	Canceled bool
}

// Counts returns the success and failure totals.
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

// SuccessRate is successes over attempted items.
func (s Summary) SuccessRate() float64 {
	return report.SuccessRate(s.Counts())
}

// Report builds the acquisition_report.json document.
func (s Summary) Report() report.Acquisition {
	successes, failures := s.Counts()
	doc := report.Acquisition{
		Timestamp:       s.Started.Add(s.Duration).UTC(),
		TotalAnimations: len(s.Results),
		Successful:      successes,
		Failed:          failures,
		FailedList:      []string{},
		SuccessRate:     report.SuccessRate(successes, failures),
		Categories:      map[string]report.CategoryTally{},
	}
	for _, r := range s.Results {
		tally := doc.Categories[r.Category]
		if tally.Failed == nil {
			tally.Failed = []string{}
		}
		if r.Succeeded() {
			tally.Successful++
		} else {
			tally.Failed = append(tally.Failed, r.Name)
			doc.FailedList = append(doc.FailedList, r.Name)
		}
		doc.Categories[r.Category] = tally
	}
	return doc
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
		errs = append(errs, fmt.Sprintf("%s: %s: %s", r.Name, r.Outcome, r.Reason))
	}
	return report.NewStageReport("acquisition", successes, failed, s.Duration, errs)
}
