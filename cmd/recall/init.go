package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the backing files",
		Long:  "Create the records file and the vector index if absent and realign them. Existing data is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Initialize(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s and %s\n",
				a.cfg.Storage.SQLitePath, a.cfg.Storage.IndexPath)
			return nil
		},
	}
}
