package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	recallerr "github.com/viant/recall/errors"
)

func newReflectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflect <summary>",
		Short: "Store a reflection",
		Long:  "Store a free-form reflection. Reflections are kept apart from memories and never indexed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := strings.TrimSpace(strings.Join(args, " "))
			if summary == "" {
				return recallerr.New(recallerr.CodeMemoryInputInvalid, "summary must not be empty")
			}
			tags, _ := cmd.Flags().GetStringSlice("tags")

			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()
			id, err := m.SaveReflection(cmd.Context(), summary, strings.Join(tags, ","))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored reflection %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringSlice("tags", nil, "comma separated tags")
	return cmd
}
