// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gitauth/gitauth/internal/gitinterface"
)

// ValidationClone is a bare, temp-scoped clone of the remote authentication
// repository: the source of truth the Orchestrator validates against,
// discarded once the update completes.
type ValidationClone struct {
	repo *gitinterface.Repository
	dir  string
}

// NewValidationClone clones url into a fresh temporary directory as a bare
// repository, fetching every branch. Callers must defer Close to guarantee
// the temp directory is removed on every exit path.
func NewValidationClone(url string) (*ValidationClone, error) {
	dir, err := os.MkdirTemp("", "gitauth-validation-*")
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create validation clone directory: %w", ErrGitError, err)
	}

	slog.Debug("Cloning validation repository...", "url", url, "dir", dir)

	repo, err := gitinterface.CloneAndFetchRepository(url, dir, "", nil, true)
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck
		return nil, fmt.Errorf("%w: unable to clone validation repository: %w", ErrGitError, err)
	}

	if err := repo.FetchRefSpec(gitinterface.DefaultRemoteName, []string{"+refs/heads/*:refs/heads/*"}); err != nil {
		os.RemoveAll(dir) //nolint:errcheck
		return nil, fmt.Errorf("%w: unable to fetch all branches into validation clone: %w", ErrGitError, err)
	}

	return &ValidationClone{repo: repo, dir: dir}, nil
}

// Repository returns the underlying bare repository.
func (v *ValidationClone) Repository() *gitinterface.Repository {
	return v.repo
}

// Close removes the validation clone's temporary directory. It is safe to
// call more than once.
func (v *ValidationClone) Close() error {
	if v.dir == "" {
		return nil
	}

	slog.Debug("Removing validation repository...", "dir", v.dir)
	dir := v.dir
	v.dir = ""
	return os.RemoveAll(dir)
}
