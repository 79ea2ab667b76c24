package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Noquela/sands-of-duat/internal/pipeline"
	"github.com/Noquela/sands-of-duat/internal/report"
)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAcquireCommand(ctx),
		newConvertCommand(ctx),
		newOrganizeCommand(ctx),
	}
}

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Download every catalog clip not already in the raw directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			return runStage(cmd, ctx, func(runCtx context.Context, p *pipeline.Pipeline) error {
				summary, err := p.Acquire(runCtx, cat)
				if err != nil && len(summary.Results) == 0 {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary.Report())
				}
				rows := make([][]string, 0, len(summary.Results))
				for _, r := range summary.Results {
					detail := r.Reason
					if r.Skipped {
						detail = "already present"
					}
					rows = append(rows, []string{r.Category, r.Name, r.Rename, string(r.Outcome), detail})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable("Acquisition", []string{"Category", "Name", "Rename", "Outcome", "Detail"}, rows, nil))
				fmt.Fprintln(out, stageLine(summary.StageReport(), shouldColorize(out)))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the acquisition report as JSON")
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert raw clips that have no converted output yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			return runStage(cmd, ctx, func(runCtx context.Context, p *pipeline.Pipeline) error {
				summary, err := p.Convert(runCtx, cat)
				if err != nil && len(summary.Results) == 0 {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary.StageReport())
				}
				rows := make([][]string, 0, len(summary.Results))
				for _, r := range summary.Results {
					detail := r.Output
					if r.Err != nil {
						detail = r.Err.Error()
					}
					rows = append(rows, []string{r.Name, string(r.Outcome), string(r.Strategy), detail})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable("Conversion", []string{"Clip", "Outcome", "Strategy", "Detail"}, rows, nil))
				fmt.Fprintln(out, stageLine(summary.StageReport(), shouldColorize(out)))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the conversion stage summary as JSON")
	return cmd
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Move converted clips into category folders and write the conversion report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			return runStage(cmd, ctx, func(runCtx context.Context, p *pipeline.Pipeline) error {
				summary, err := p.Organize(runCtx, cat)
				if err != nil {
					return err
				}
				doc := summary.Report(cat)
				if jsonOutput {
					return writeJSON(cmd, doc)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable("Organization", []string{"Category", "Clips", "Files"}, categoryRows(doc), []columnAlignment{alignLeft, alignRight, alignLeft}))
				fmt.Fprintf(out, "Total: %d clips, %.2f MB\n", doc.ProcessingSummary.TotalProcessed, doc.ProcessingSummary.TotalSizeMB)
				if len(summary.Missing) > 0 {
					fmt.Fprintln(out, renderStatusLine("Not converted", statusWarn, strings.Join(summary.Missing, ", "), shouldColorize(out)))
				}
				if len(summary.Pending) > 0 {
					files := make([]string, 0, len(summary.Pending))
					for _, p := range summary.Pending {
						files = append(files, p.File)
					}
					fmt.Fprintln(out, renderStatusLine("Not organized", statusWarn, strings.Join(files, ", "), shouldColorize(out)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the conversion report as JSON")
	return cmd
}

func categoryRows(doc report.Conversion) [][]string {
	names := make([]string, 0, len(doc.GodotStructure))
	for name := range doc.GodotStructure {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		clips := doc.GodotStructure[name]
		rows = append(rows, []string{name, fmt.Sprintf("%d", len(clips)), strings.Join(clips, ", ")})
	}
	return rows
}
