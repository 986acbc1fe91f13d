// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitauth

import (
	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/updater"
	"github.com/spf13/cobra"
)

func newUpdateCommand() *cobra.Command {
	o := &sharedOptions{}
	cmd := &cobra.Command{
		Use:               "update <url> <path>",
		Short:             "Validate and apply new commits to a local authentication repository",
		Long:              `The 'update' command validates every remote commit after the local authentication repository's last validated commit and advances the local authentication repository and its target repositories only as far as validation allows.`,
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := o.toConfig(config.OperationUpdate, args[0], args[1])
			result, err := updater.Update(cfg, nil)
			if result != nil {
				logWarnings(result.Warnings)
			}
			return err
		},
	}
	o.AddFlags(cmd)
	return cmd
}
