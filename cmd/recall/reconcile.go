package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/recall/memory"
)

func newReconcileCmd(a *app) *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Realign the vector index with the records",
		Long: `Truncate surplus vectors and restore missing ones from the embedding journal.

A record whose add was interrupted before its vector was written can only be
restored when storage.journal is enabled. Otherwise reconcile fails and every
later add is refused as misaligned; --drop-unjournaled deletes that record and
every record after it so the store can be used again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()
			var opts []memory.ReconcileOption
			if drop {
				opts = append(opts, memory.DropUnjournaled())
			}
			report, err := m.Reconcile(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !report.Changed() {
				_, _ = fmt.Fprintf(out, "Aligned: %d records, %d vectors\n", report.Records, report.VectorsAfter)
				return nil
			}
			_, _ = fmt.Fprintf(out, "Realigned: %d records, vectors %d -> %d (truncated %d, restored %d, dropped records %d)\n",
				report.Records, report.VectorsBefore, report.VectorsAfter, report.Truncated, report.Appended, report.Dropped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop-unjournaled", false, "delete records whose vector cannot be restored")
	return cmd
}
