// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/danwakefield/fnmatch"
	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/gitinterface"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentTargetFetches bounds how many target repositories are cloned
// or fetched at once; §5 allows parallelizing distinct target repos once
// their governing AR commit has validated.
const maxConcurrentTargetFetches = 4

// UpdateTargets advances every target repository declared in manifest to
// the commit named for it in entries, for one already-validated AR commit.
// previousCommits carries the commit previously accepted for each target
// (zero hash if none), used for the descendant check that detects a target
// force push.
func UpdateTargets(cfg *config.Config, manifest *RepositoriesManifest, entries map[string]*TargetEntry, previousCommits map[string]gitinterface.Hash) ([]TargetResult, error) {
	names := make([]string, 0, len(manifest.Repositories))
	for name := range manifest.Repositories {
		names = append(names, name)
	}

	results := make([]TargetResult, len(names))
	group := new(errgroup.Group)
	group.SetLimit(maxConcurrentTargetFetches)

	for i, name := range names {
		i, name := i, name
		descriptor := manifest.Repositories[name]

		if isExcluded(name, cfg.ExcludedTargetGlobs) {
			results[i] = TargetResult{Name: name, Excluded: true}
			continue
		}

		entry, ok := entries[name]
		if !ok {
			return nil, fmt.Errorf("%w: repositories.json declares '%s' but targets/%s is missing", ErrInconsistentManifest, name, name)
		}

		group.Go(func() error {
			result, err := updateTarget(cfg, name, descriptor, entry, previousCommits[name])
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func isExcluded(name string, globs []string) bool {
	for _, glob := range globs {
		if fnmatch.Match(glob, name, 0) {
			return true
		}
	}
	return false
}

func updateTarget(cfg *config.Config, name string, descriptor RepositoryDescriptor, entry *TargetEntry, previousCommit gitinterface.Hash) (TargetResult, error) {
	commitID, err := gitinterface.NewHash(entry.Commit)
	if err != nil {
		return TargetResult{}, fmt.Errorf("%w: target '%s' has invalid commit SHA '%s'", ErrMissingTarget, name, entry.Commit)
	}

	branch := entry.Branch
	if branch == "" {
		return TargetResult{}, fmt.Errorf("%w: target '%s' has no branch recorded", ErrInconsistentManifest, name)
	}

	dir := filepath.Join(cfg.LibraryDir, name)

	slog.Debug("Advancing target repository...", "target", name, "branch", branch, "commit", commitID.String())

	repo, clonedFromURL, err := ensureTargetCloned(dir, descriptor.URLs, branch, cfg.Bare)
	if err != nil {
		return TargetResult{}, &UpdateFailed{Kind: ErrGitError, Target: name, Inner: err}
	}

	var warnings []Warning
	if clonedFromURL != "" && len(descriptor.URLs) > 0 && clonedFromURL != descriptor.URLs[0] {
		w, err := collectWarning(cfg, Warning{
			Target:  name,
			Message: fmt.Sprintf("target '%s' cloned from fallback mirror '%s' after the primary mirror URL failed", name, clonedFromURL),
		})
		if err != nil {
			return TargetResult{}, err
		}
		warnings = append(warnings, *w)
	}

	refSpec, err := repo.RefSpec(gitinterface.BranchReferenceName(branch), gitinterface.DefaultRemoteName, false)
	if err != nil {
		return TargetResult{}, &UpdateFailed{Kind: ErrGitError, Target: name, Inner: err}
	}
	if err := repo.FetchRefSpec(gitinterface.DefaultRemoteName, []string{refSpec}); err != nil {
		return TargetResult{}, &UpdateFailed{Kind: ErrGitError, Target: name, Inner: err}
	}

	remoteBranchRef := gitinterface.RemoteRef(gitinterface.BranchReferenceName(branch), gitinterface.DefaultRemoteName)
	branchTip, err := repo.GetReference(remoteBranchRef)
	if err != nil {
		return TargetResult{}, &UpdateFailed{Kind: ErrGitError, Target: name, Inner: fmt.Errorf("unable to resolve '%s' branch tip: %w", branch, err)}
	}

	reachable, err := repo.KnowsCommit(branchTip, commitID)
	if err != nil || !reachable {
		return TargetResult{}, &UpdateFailed{Kind: ErrMissingTarget, Target: name, Inner: fmt.Errorf("commit '%s' is not reachable from '%s'", commitID, branch)}
	}

	if !previousCommit.IsZero() && !previousCommit.Equal(commitID) {
		descendant, err := repo.KnowsCommit(commitID, previousCommit)
		if err != nil || !descendant {
			return TargetResult{}, &UpdateFailed{Kind: ErrTargetForcePush, Target: name, Inner: fmt.Errorf("commit '%s' is not a descendant of previously validated commit '%s'", commitID, previousCommit)}
		}
	}

	return TargetResult{Name: name, Commit: commitID, Branch: branch, Warnings: warnings}, nil
}

// ensureTargetCloned returns the target's local clone, plus the mirror URL
// it was just cloned from (empty if the clone already existed locally, so
// no mirror selection happened this call).
func ensureTargetCloned(dir string, urls []string, branch string, bare bool) (*gitinterface.Repository, string, error) {
	gitDir := dir
	if !bare {
		gitDir = filepath.Join(dir, ".git")
	}

	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		repo, err := gitinterface.LoadRepository(dir)
		return repo, "", err
	}

	if len(urls) == 0 {
		return nil, "", fmt.Errorf("no mirror urls declared for target repository")
	}

	var lastErr error
	for _, url := range urls {
		repo, err := gitinterface.CloneAndFetchRepository(url, dir, branch, nil, bare)
		if err == nil {
			return repo, url, nil
		}
		lastErr = err
		slog.Warn("Failed to clone target repository from mirror URL, trying next", "url", url, "error", err)
	}

	return nil, "", fmt.Errorf("all mirror urls failed for target repository: %w", lastErr)
}
