package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viant/recall/config"
	recallerr "github.com/viant/recall/errors"
)

// app carries the settings resolved once per invocation.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

// NewRootCmd creates the root recall command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "recall",
		Short:         "recall: a multimodal memory log",
		Long:          "recall stores short captions of images and text next to their embeddings and retrieves the most similar ones for a query.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "directory holding the backing files")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text, json")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newSearchCmd(a),
		newReflectCmd(a),
		newReconcileCmd(a),
		newCheckCmd(a),
		newStatsCmd(a),
	)
	return root
}

// load resolves configuration with flag > env > file > defaults precedence.
func (a *app) load(cmd *cobra.Command) error {
	v := viper.New()
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return recallerr.Errorf(recallerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		v.SetConfigName("recall")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/recall")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return recallerr.Errorf(recallerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"data_dir":   "data-dir",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return recallerr.Errorf(recallerr.CodeConfigLoadReadFailure, "binding %s flag: %w", flag, err)
			}
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg.Log, cmd.ErrOrStderr())
	return nil
}
