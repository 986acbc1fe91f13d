// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitauth

import (
	"log/slog"

	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/updater"
	"github.com/spf13/cobra"
)

// logWarnings reports every warning collected during a non-strict run.
// Under a strict Config these never accumulate; collectWarning escalates
// them to a fatal error instead.
func logWarnings(warnings []updater.Warning) {
	for _, w := range warnings {
		slog.Warn(w.Message, "commit", w.Commit.String(), "role", w.Role, "target", w.Target)
	}
}

func newCloneCommand() *cobra.Command {
	o := &sharedOptions{}
	cmd := &cobra.Command{
		Use:               "clone <url> <path>",
		Short:             "Clone a remote authentication repository",
		Long:              `The 'clone' command validates the full commit history of a remote authentication repository's branch and checks out the local authentication repository and every target repository it declares.`,
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := o.toConfig(config.OperationClone, args[0], args[1])
			result, err := updater.Clone(cfg, nil)
			if result != nil {
				logWarnings(result.Warnings)
			}
			return err
		},
	}
	o.AddFlags(cmd)
	return cmd
}
