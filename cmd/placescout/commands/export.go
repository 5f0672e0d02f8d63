package commands

import (
	"fmt"
	"os"

	"placescout/lib/sqliteutil"
	"placescout/services/placescout/db"
	"placescout/services/placescout/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var exportStore *string
var exportDb *string

func init() {
	exportStore = exportCmd.Flags().String("store", defaultStorePath, "The store to read records from.")
	exportDb = exportCmd.Flags().String("db", "", "The sqlite database to write records to.")
	exportCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export --db <path/to/output.db> [--store <restaurants.json>]",
	Short: "Upserts the stored records into a sqlite database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		records, err := store.Read(ctx, *exportStore)
		if err != nil {
			return err
		}

		out, err := sqliteutil.OpenDB(db.Schema, *exportDb)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer out.Close()

		err = db.Export(ctx, out, records)
		if err != nil {
			return err
		}

		counts, err := db.New(out).CountRestaurantsByLocality(ctx)
		if err != nil {
			return fmt.Errorf("failed to count exported records: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Locality", "Restaurants"})
		var total int64
		for _, c := range counts {
			t.AppendRow(table.Row{c.Locality, c.Count})
			total += c.Count
		}
		t.AppendFooter(table.Row{"total", total})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
