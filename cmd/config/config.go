// Package config writes the effective configuration back to disk.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and persist the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save [path]",
		Short: "Write the effective settings, flags and environment included, as YAML",
		Long: "Write the merged configuration to path, or over the file it was read from. " +
			"Comments in the previous file are not preserved.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := conf.ConfigFileUsed()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.NewStd("no configuration file in use, pass a path")
			}
			if err := conf.SaveYAMLConfig(path, settings); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return err
		},
	})
	return cmd
}
