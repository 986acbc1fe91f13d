// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitauth

import (
	"github.com/gitauth/gitauth/internal/config"
	"github.com/spf13/cobra"
)

// sharedOptions collects the flags both clone and update recognize; they
// populate the same internal/config.Config fields either entry point reads.
type sharedOptions struct {
	libraryDir           string
	expectedType         string
	excludeGlobs         []string
	strict               bool
	force                bool
	bare                 bool
	noUpstream           bool
	updateFromFilesystem bool
}

func (o *sharedOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&o.libraryDir,
		"library-dir",
		"",
		"directory under which target repositories are cloned (default: alongside the authentication repository)",
	)

	cmd.Flags().StringVar(
		&o.expectedType,
		"expected-type",
		string(config.RepoTypeEither),
		"expected authentication repository type: test, official, or either",
	)

	cmd.Flags().StringSliceVar(
		&o.excludeGlobs,
		"exclude",
		nil,
		"glob patterns of target repositories to skip",
	)

	cmd.Flags().BoolVar(
		&o.strict,
		"strict",
		false,
		"treat every warning as a fatal error",
	)

	cmd.Flags().BoolVar(
		&o.force,
		"force",
		false,
		"re-clone the local authentication repository from scratch if the remote has diverged",
	)

	cmd.Flags().BoolVar(
		&o.bare,
		"bare",
		false,
		"clone target repositories bare",
	)

	cmd.Flags().BoolVar(
		&o.noUpstream,
		"no-upstream",
		false,
		"skip the ancestry check between the local and remote authentication repository tips",
	)

	cmd.Flags().BoolVar(
		&o.updateFromFilesystem,
		"update-from-filesystem",
		false,
		"allow url to name a local filesystem path instead of a network remote",
	)
}

func (o *sharedOptions) toConfig(operation config.Operation, url, path string) *config.Config {
	libraryDir := o.libraryDir
	if libraryDir == "" {
		libraryDir = path + "-libraries"
	}

	return &config.Config{
		Operation:            operation,
		URL:                  url,
		Path:                 path,
		LibraryDir:           libraryDir,
		ExpectedRepoType:     config.RepoType(o.expectedType),
		ExcludedTargetGlobs:  o.excludeGlobs,
		Strict:               o.strict,
		Force:                o.force,
		Bare:                 o.bare,
		NoUpstream:           o.noUpstream,
		UpdateFromFilesystem: o.updateFromFilesystem,
	}
}
