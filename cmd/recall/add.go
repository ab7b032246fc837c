package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/recall/caption"
	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Store a memory",
		Long: "Store a text memory, or an image memory captioned by the configured vision model. " +
			"The caption is embedded and appended to the index.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdd(cmd, args)
		},
	}
	cmd.Flags().String("image", "", "path of an image to caption and store")
	cmd.Flags().String("caption", "", "caption to store with --image instead of generating one")
	cmd.Flags().String("modality", "", "modality label (default text, or image with --image)")
	return cmd
}

func (a *app) runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	imagePath, _ := cmd.Flags().GetString("image")
	text, _ := cmd.Flags().GetString("caption")
	modality, _ := cmd.Flags().GetString("modality")

	filePath := ""
	if imagePath != "" {
		abs, err := filepath.Abs(imagePath)
		if err != nil {
			return recallerr.Wrap(err, recallerr.CodeMemoryInputInvalid, "resolve image path", recallerr.FieldPath(imagePath))
		}
		filePath = abs
		if modality == "" {
			modality = "image"
		}
		if text == "" {
			c, err := a.captioner()
			if err != nil {
				return err
			}
			if text, err = caption.File(ctx, c, abs); err != nil {
				return err
			}
		}
	} else {
		text = strings.TrimSpace(strings.Join(args, " "))
	}
	if text == "" {
		return recallerr.New(recallerr.CodeMemoryInputInvalid, "nothing to store; pass text or --image")
	}
	if modality == "" {
		modality = "text"
	}

	e, err := a.embedder(ctx)
	if err != nil {
		return err
	}
	defer embed.Close(e)
	v, err := e.Embed(ctx, text)
	if err != nil {
		return err
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	defer m.Close()
	id, err := m.AddMemory(ctx, text, modality, filePath, v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored memory %d: %s\n", id, text)
	return nil
}
