// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"fmt"
	"log/slog"

	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/gitinterface"
)

// recoverFromFailure implements the partial-advance policy (§4.8): when
// validation fails at c_k, the local AR and targets are advanced to
// c_{k-1} only if at least one prior commit validated and every target
// reachable from it was successfully fetched. lastGoodCommit and result
// reflect exactly that prior state, since they are only updated after a
// commit's targets fully advance.
func recoverFromFailure(cfg *config.Config, localRepo *gitinterface.Repository, remoteRepo *gitinterface.Repository, lastGoodCommit gitinterface.Hash, result *Result, cause error) (*Result, error) {
	if lastGoodCommit.IsZero() {
		slog.Debug("No commit validated before failure, leaving local state untouched", "url", cfg.URL)
		return nil, cause
	}

	slog.Warn("Validation failed, advancing only as far as the last validated commit", "commit", lastGoodCommit.String(), "error", cause)

	if err := advanceLocalAR(cfg, localRepo, remoteRepo, lastGoodCommit); err != nil {
		return nil, fmt.Errorf("failed to persist partial advance after validation error %w: %w", cause, err)
	}

	if err := checkoutTargets(cfg, result.Targets); err != nil {
		return nil, fmt.Errorf("failed to check out targets after validation error %w: %w", cause, err)
	}

	if err := WriteTrustedState(cfg.Path, lastGoodCommit); err != nil {
		return nil, fmt.Errorf("failed to persist trusted state after validation error %w: %w", cause, err)
	}

	return nil, cause
}

// advanceLocalAR fast-forwards the local AR to targetCommit, creating the
// local clone from scratch if this is the very first commit ever persisted
// (first clone, or the first commit of a failed first clone's partial
// advance).
func advanceLocalAR(cfg *config.Config, localRepo *gitinterface.Repository, remoteRepo *gitinterface.Repository, targetCommit gitinterface.Hash) error {
	branchRef := gitinterface.BranchReferenceName(arBranch)

	if localRepo == nil {
		repo, err := gitinterface.CloneAndFetchRepository(cfg.URL, cfg.Path, arBranch, nil, cfg.Bare)
		if err != nil {
			return fmt.Errorf("%w: unable to create local authentication repository: %w", ErrGitError, err)
		}
		return repo.ResetHard(branchRef, targetCommit)
	}

	refSpec, err := localRepo.RefSpec(branchRef, gitinterface.DefaultRemoteName, false)
	if err != nil {
		return fmt.Errorf("%w: unable to build fetch refspec for authentication repository: %w", ErrGitError, err)
	}
	if err := localRepo.FetchRefSpec(gitinterface.DefaultRemoteName, []string{refSpec}); err != nil {
		return fmt.Errorf("%w: unable to fetch authentication repository updates: %w", ErrGitError, err)
	}

	return localRepo.ResetHard(branchRef, targetCommit)
}

// checkoutTargets checks out every non-excluded, non-bare target repository
// to the commit recorded for it, the final step that only ever runs once a
// governing AR commit has been fully validated.
func checkoutTargets(cfg *config.Config, targets []TargetResult) error {
	for _, tr := range targets {
		if tr.Excluded || cfg.Bare {
			continue
		}

		dir := cfg.LibraryDir + "/" + tr.Name
		repo, err := gitinterface.LoadRepository(dir)
		if err != nil {
			return fmt.Errorf("%w: unable to load target repository '%s' for checkout: %w", ErrGitError, tr.Name, err)
		}

		if err := repo.ResetHard(gitinterface.BranchReferenceName(tr.Branch), tr.Commit); err != nil {
			return fmt.Errorf("%w: unable to check out target repository '%s': %w", ErrGitError, tr.Name, err)
		}
	}

	return nil
}
