package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/memory"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <query text>",
		Short: "Cross-check index search against the embedding journal",
		Long: "Embed the query, search the index and the journaled embeddings in SQLite, " +
			"and report any position whose vector or ranking disagrees.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, _ := cmd.Flags().GetInt("k")
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return recallerr.New(recallerr.CodeMemoryInputInvalid, "query must not be empty")
			}
			e, err := a.embedder(ctx)
			if err != nil {
				return err
			}
			defer embed.Close(e)
			v, err := e.Embed(ctx, query)
			if err != nil {
				return err
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()

			report, err := m.Verify(ctx, v, k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Consistent() {
				_, _ = fmt.Fprintf(out, "OK: top %d index hits match the journal\n", len(report.Index))
				return nil
			}
			for _, mm := range report.Mismatches {
				_, _ = fmt.Fprintf(out, "rank %d: position %d id %d: %s\n", mm.Rank, mm.Position, mm.ID, mm.Reason)
			}
			return recallerr.New(recallerr.CodeStoreInvariantMisaligned, "index disagrees with the journal; run reconcile",
				recallerr.Field("mismatches", len(report.Mismatches)))
		},
	}
	cmd.Flags().Int("k", memory.DefaultK, "number of neighbors to compare")
	return cmd
}
