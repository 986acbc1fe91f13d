// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"path"
	"strings"

	"github.com/jonboulle/clockwork"
)

// PushRefSpec runs `git push` with already-built refspecs. gitauth is a
// read-only client updater and never calls this in production; it's kept as
// a general Git Backend primitive (mirroring FetchRefSpec) and exercised by
// its own test.
func (r *Repository) PushRefSpec(remoteName string, refSpecs []string) error {
	args := []string{"push", remoteName}
	args = append(args, refSpecs...)

	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to push: %w", err)
	}

	return nil
}

// Push builds a fast-forward-only refspec per ref and pushes it to
// remoteName. See PushRefSpec.
func (r *Repository) Push(remoteName string, refs []string) error {
	refSpecs := make([]string, 0, len(refs))
	for _, ref := range refs {
		refSpec, err := r.RefSpec(ref, "", true)
		if err != nil {
			return err
		}
		refSpecs = append(refSpecs, refSpec)
	}

	return r.PushRefSpec(remoteName, refSpecs)
}

// FetchRefSpec runs `git fetch` with already-built refspecs.
func (r *Repository) FetchRefSpec(remoteName string, refSpecs []string) error {
	args := []string{"fetch", remoteName}
	args = append(args, refSpecs...)

	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to fetch: %w", err)
	}

	return nil
}

// Fetch builds a refspec per ref and fetches it from remoteName. Each ref is
// fetched into the local ref of the same name (refs/heads/x:refs/heads/x),
// which git refuses for the branch checked out in a non-bare repository.
// CloneAndFetchRepository calls this with fastForwardOnly=true; the
// updater's AR and target fetches build remote-tracking refspecs with
// RefSpec and call FetchRefSpec instead.
func (r *Repository) Fetch(remoteName string, refs []string, fastForwardOnly bool) error {
	refSpecs := make([]string, 0, len(refs))
	for _, ref := range refs {
		refSpec, err := r.RefSpec(ref, "", fastForwardOnly)
		if err != nil {
			return err
		}
		refSpecs = append(refSpecs, refSpec)
	}

	return r.FetchRefSpec(remoteName, refSpecs)
}

// FetchObject fetches a single object by ID from remoteName, for callers
// that know exactly which commit they need without fetching a whole branch.
func (r *Repository) FetchObject(remoteName string, objectID Hash) error {
	args := []string{"fetch", remoteName, objectID.String()}
	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to fetch object: %w", err)
	}

	return nil
}

// CloneAndFetchRepository clones remoteURL into dir and immediately fetches
// refs from it. The validation clone (C2) uses bare=true so every
// historical commit can be checked out without a working tree; the target
// repo updater (C6) uses bare=false so a target repository's files can be
// materialized on disk.
func CloneAndFetchRepository(remoteURL, dir, initialBranch string, refs []string, bare bool) (*Repository, error) {
	if dir == "" {
		return nil, fmt.Errorf("target directory must be specified")
	}

	repo := &Repository{clock: clockwork.NewRealClock()}

	args := []string{"clone", remoteURL}
	if initialBranch != "" {
		initialBranch = strings.TrimPrefix(initialBranch, BranchRefPrefix)
		args = append(args, "--branch", initialBranch)
	}
	args = append(args, dir)

	if bare {
		args = append(args, "--bare")
		repo.gitDirPath = dir
	} else {
		repo.gitDirPath = path.Join(dir, ".git")
	}

	_, stdErr, err := repo.executor(args...).execute()
	if err != nil {
		return nil, fmt.Errorf("unable to clone repository: %s", stdErr)
	}

	return repo, repo.Fetch(DefaultRemoteName, refs, true)
}
