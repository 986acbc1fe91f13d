// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitauth assembles the gitauth CLI: thin Cobra commands that
// populate an internal/config.Config and hand it to internal/updater.
package gitauth

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
}

func (o *rootOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(
		&o.verbose,
		"verbose",
		false,
		"enable verbose logging",
	)
}

func (o *rootOptions) PreRunE(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// New returns the gitauth root command.
func New() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:               "gitauth",
		Short:             "Validate and synchronize Git-based authentication repositories",
		Long:              `gitauth clones and updates TUF-governed authentication repositories and the target repositories they declare, verifying every commit against the root/targets/snapshot/timestamp metadata hierarchy before advancing.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: o.PreRunE,
	}

	o.AddFlags(cmd)

	cmd.AddCommand(newCloneCommand())
	cmd.AddCommand(newUpdateCommand())

	return cmd
}
