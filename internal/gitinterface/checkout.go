// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"os"
	"strings"
)

// Checkout updates the working tree to match refOrCommit, which may be a
// branch name or a commit ID. It is a no-op (and an error) on a bare
// repository, which has no working tree to update.
func (r *Repository) Checkout(refOrCommit string) error {
	if r.IsBare() {
		return fmt.Errorf("cannot check out '%s': repository is bare", refOrCommit)
	}

	return r.inWorktree(func() error {
		_, err := r.executor("checkout", refOrCommit).executeString()
		if err != nil {
			return fmt.Errorf("unable to check out '%s': %w", refOrCommit, err)
		}
		return nil
	})
}

// ResetHard moves branchRef to commitID and, on a non-bare repository,
// resets the working tree and index to match it.
func (r *Repository) ResetHard(branchRef string, commitID Hash) error {
	if err := r.SetReference(branchRef, commitID); err != nil {
		return err
	}

	if r.IsBare() {
		return nil
	}

	return r.inWorktree(func() error {
		_, err := r.executor("reset", "--hard", commitID.String()).executeString()
		if err != nil {
			return fmt.Errorf("unable to reset working tree to '%s': %w", commitID.String(), err)
		}
		return nil
	})
}

// inWorktree runs fn with the process's working directory set to this
// repository's worktree root, restoring the original directory afterwards.
// checkout/reset resolve paths relative to the process cwd, not --git-dir.
func (r *Repository) inWorktree(fn func() error) error {
	worktree := strings.TrimSuffix(r.gitDirPath, ".git")

	current, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("unable to determine current directory: %w", err)
	}

	if err := os.Chdir(worktree); err != nil {
		return fmt.Errorf("unable to enter worktree '%s': %w", worktree, err)
	}
	defer os.Chdir(current) //nolint:errcheck

	return fn()
}
