package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Noquela/sands-of-duat/internal/pipeline"
	"github.com/Noquela/sands-of-duat/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		continueOnFailure bool
		jsonOutput        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run setup, acquisition, conversion, and organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("continue-on-critical-failure") {
				cfg.Pipeline.ContinueOnCriticalFailure = continueOnFailure
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			res, err := pipeline.New(cfg, logger).Run(signalCtx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, res.Report)
			}
			printRunSummary(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-critical-failure", false, "Keep running later stages when setup or acquisition fails")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the pipeline report as JSON")
	return cmd
}

func printRunSummary(cmd *cobra.Command, res pipeline.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(res.Stages))
	for _, stage := range res.Stages {
		status := "completed"
		if !stage.Completed {
			status = "failed"
			if stage.Decision != "" {
				status += " (" + string(stage.Decision) + ")"
			}
		}
		rows = append(rows, []string{stage.Name, status, stage.Duration.Round(time.Millisecond).String()})
	}
	fmt.Fprintln(out, renderTable("Run "+res.RunID, []string{"Stage", "Status", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))

	for _, stageReport := range res.Report.Stages {
		fmt.Fprintln(out, stageLine(stageReport, colorize))
	}
	for _, e := range res.Report.Errors {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, e, colorize))
	}

	switch {
	case res.Success:
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusOK, "success", colorize))
	case res.Canceled:
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusWarn, "canceled; rerun to resume", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusError, "incomplete; check errors and rerun", colorize))
	}
	if res.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", res.ReportPath)
	}
}

func stageLine(sr report.StageReport, colorize bool) string {
	kind := statusOK
	if len(sr.Failures) > 0 {
		kind = statusWarn
	}
	message := fmt.Sprintf("%d/%d succeeded (%.0f%%)", sr.Successes, sr.Total, sr.SuccessRate*100)
	return renderStatusLine(sr.Stage, kind, message, colorize)
}

// runStage wraps a single-stage command with the run lock and signal handling.
func runStage(cmd *cobra.Command, ctx *commandContext, fn func(context.Context, *pipeline.Pipeline) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	lock, err := pipeline.AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return fn(signalCtx, pipeline.New(cfg, logger, pipeline.WithoutHistory()))
}
