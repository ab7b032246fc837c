package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/pipeline"
)

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find the memories most similar to a query",
		Long:  "Run the retrieval pipeline (embed, search, format) and print the formatted results as JSON, nearest first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return recallerr.New(recallerr.CodeMemoryInputInvalid, "query must not be empty")
			}
			e, err := a.embedder(ctx)
			if err != nil {
				return err
			}
			defer embed.Close(e)
			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()

			results, err := pipeline.New(e, m, pipeline.WithLogger(a.log)).Query(ctx, query)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}
