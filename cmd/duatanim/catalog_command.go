package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type catalogRow struct {
	Category      string `json:"category"`
	CanonicalName string `json:"canonical_name"`
	Rename        string `json:"rename"`
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show catalog entries and the file name each one is saved under",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			entries := cat.Entries()
			if jsonOutput {
				out := make([]catalogRow, 0, len(entries))
				for _, e := range entries {
					out = append(out, catalogRow{Category: e.Category, CanonicalName: e.CanonicalName, Rename: e.Rename})
				}
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Category, e.CanonicalName, e.Rename})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(cat.ProjectName(), []string{"Category", "Name", "Rename"}, rows, nil))
			settings := cat.Settings()
			fmt.Fprintf(out, "%d clips in %d categories; export %s at %d fps, skin %s\n",
				cat.Len(), len(cat.Categories()), settings.Format, settings.FPS, yesNo(settings.WithSkin))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}
