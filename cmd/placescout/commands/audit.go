package commands

import (
	"fmt"
	"log/slog"
	"os"

	"placescout/services/placescout/audit"
	"placescout/services/placescout/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var auditStore *string
var auditThreshold *float64

func init() {
	auditStore = auditCmd.Flags().String("store", defaultStorePath, "The store to audit.")
	auditThreshold = auditCmd.Flags().Float64("threshold", audit.DefaultThreshold, "The name similarity (0-1) from which two records are reported.")
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit [--store <restaurants.json>] [--threshold <0-1>]",
	Short: "Reports stored records that are probably the same restaurant.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.Read(cmd.Context(), *auditStore)
		if err != nil {
			return err
		}

		pairs := audit.NearDuplicates(records, *auditThreshold)
		if len(pairs) == 0 {
			slog.Info("no near-duplicates found", "records", len(records), "threshold", *auditThreshold)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Name", "Address", "#", "Name", "Address", "Locality", "Similarity"})
		for _, p := range pairs {
			a := records[p.First]
			b := records[p.Second]
			t.AppendRow(table.Row{
				p.First + 1, a.Name, orDash(a.Address),
				p.Second + 1, b.Name, orDash(b.Address),
				a.Locality,
				fmt.Sprintf("%.3f", p.Similarity),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
