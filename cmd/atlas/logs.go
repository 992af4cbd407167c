package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/config"
	"github.com/atlas-tui/atlas/internal/logtail"
)

func newLogsCmd(opts *rootOpts) *cobra.Command {
	var lines int
	var level string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the atlas log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return errors.Errorf("load config: %w", err)
			}
			min, err := zerolog.ParseLevel(level)
			if err != nil {
				return errors.Errorf("parse --level: %w", err)
			}
			if noColor {
				color.NoColor = true
			}

			entries, err := logtail.ReadEntries(cfg.LogFile, lines, min)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintln(out, logtail.Format(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to read (0 for all)")
	cmd.Flags().StringVarP(&level, "level", "l", "debug", "minimum level to show")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	return cmd
}
