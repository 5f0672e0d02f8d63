package commands

import (
	"os"

	"placescout/services/placescout/record"
	"placescout/services/placescout/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showStore *string
var showLocality *string

func init() {
	showStore = showCmd.Flags().String("store", defaultStorePath, "The store to read records from.")
	showLocality = showCmd.Flags().String("locality", "", "Only show the records of this locality.")
	rootCmd.AddCommand(showCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var showCmd = &cobra.Command{
	Use:   "show [--store <restaurants.json>] [--locality <name>]",
	Short: "Prints the stored records as a table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.Read(cmd.Context(), *showStore)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Name", "Rating", "Reviews", "Price", "Category", "Locality", "Share link"})

		shown := 0
		for i, r := range records {
			if *showLocality != "" && r.Locality != *showLocality {
				continue
			}
			t.AppendRow(table.Row{
				i + 1,
				orDash(r.Name),
				orDash(r.Rating),
				orDash(r.ReviewCount),
				orDash(r.PriceRange),
				r.Category,
				r.Locality,
				orDash(record.Deref(r.ShareLink)),
			})
			shown++
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "", "shown", shown})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
