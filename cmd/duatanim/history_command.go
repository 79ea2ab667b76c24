package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Noquela/sands-of-duat/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		item       string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the item results of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 || strings.TrimSpace(item) != "" {
				var items []history.ItemResult
				title := ""
				if len(args) == 1 {
					title = "Run " + args[0]
					items, err = store.ItemResults(cmd.Context(), args[0])
				} else {
					title = "Item " + item
					items, err = store.ItemHistory(cmd.Context(), strings.TrimSpace(item))
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "No item results recorded")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, it := range items {
					rows = append(rows, []string{it.RunID, it.Stage, it.Name, it.Category, it.Outcome, it.Detail})
				}
				fmt.Fprintln(out, renderTable(title, []string{"Run", "Stage", "Name", "Category", "Outcome", "Detail"}, rows, nil))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Duration().Round(time.Second).String(),
					runStatus(run),
					strconv.Itoa(run.Acquired),
					strconv.Itoa(run.Converted),
					strconv.Itoa(run.Organized),
					strconv.Itoa(run.ErrorCount),
				})
			}
			fmt.Fprintln(out, renderTable("", []string{"Run", "Started", "Duration", "Status", "Acquired", "Converted", "Organized", "Errors"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&item, "item", "", "Show every recorded result for one item name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func runStatus(run history.Run) string {
	switch {
	case run.Success:
		return "success"
	case run.Canceled:
		return "canceled"
	case run.Aborted:
		return "aborted"
	default:
		return "incomplete"
	}
}
