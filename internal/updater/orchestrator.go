// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/dependency"
	"github.com/gitauth/gitauth/internal/gitinterface"
	"github.com/gitauth/gitauth/internal/rolecache"
	"github.com/gitauth/gitauth/internal/vcstuf"
)

// arBranch is the branch of the authentication repository itself that the
// updater tracks. Target repositories each declare their own branch in
// their target file; the AR's own history is always validated on this one.
const arBranch = "main"

// Clone runs the first-clone entry point: the user AR is absent, so the
// full history of the expected branch is validated and every target is
// advanced to its state at the final commit.
func Clone(cfg *config.Config, depCtx *dependency.Context) (*Result, error) {
	return run(cfg, depCtx, true)
}

// Update runs the update entry point: the user AR already exists at
// cfg.Path; only commits after its last validated commit are validated.
func Update(cfg *config.Config, depCtx *dependency.Context) (*Result, error) {
	return run(cfg, depCtx, false)
}

func run(cfg *config.Config, depCtx *dependency.Context, freshClone bool) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if depCtx == nil {
		depCtx = dependency.NewContext()
	}

	vc, err := NewValidationClone(cfg.URL)
	if err != nil {
		return nil, err
	}
	defer vc.Close() //nolint:errcheck

	var (
		localRepo *gitinterface.Repository
		localTip  gitinterface.Hash
	)

	if !freshClone {
		localRepo, err = gitinterface.LoadRepository(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to load local authentication repository at '%s': %w", ErrGitError, cfg.Path, err)
		}

		localTip, err = ReadTrustedState(cfg.Path)
		if err != nil {
			return nil, err
		}
	}

	var warnings []Warning

	commits, err := CommitSequence(vc.Repository(), arBranch, localTip, cfg.NoUpstream)
	if err != nil {
		if !errors.Is(err, ErrForcePushDetected) || !cfg.Force {
			return nil, err
		}

		w, err := collectWarning(cfg, Warning{
			Message: fmt.Sprintf("force push detected on remote authentication repository '%s', restarted as a fresh clone", cfg.URL),
		})
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, *w)

		slog.Warn("Force push detected on remote authentication repository, restarting as a fresh clone", "url", cfg.URL)
		localTip = gitinterface.ZeroHash
		commits, err = CommitSequence(vc.Repository(), arBranch, localTip, true)
		if err != nil {
			return nil, err
		}
	}

	if len(commits) == 0 {
		slog.Debug("No new commits to validate, update is a no-op", "url", cfg.URL)
		return &Result{LastValidatedCommit: localTip, Warnings: warnings}, nil
	}

	tipMirror, err := vcstuf.NewGitMirror(vc.Repository(), commits[len(commits)-1])
	if err != nil {
		return nil, err
	}
	if err := expectedRepoTypeMatches(tipMirror, cfg.ExpectedRepoType); err != nil {
		return nil, err
	}

	cache, state, err := seedTrust(localRepo, localTip)
	if err != nil {
		return nil, err
	}

	previousTargetCommits := map[string]gitinterface.Hash{}
	if !localTip.IsZero() {
		previousTargetCommits, err = readPreviousTargetCommits(localRepo, localTip)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{Warnings: warnings}
	lastGoodCommit := localTip

	for i, commitID := range commits {
		mirror, err := vcstuf.NewGitMirror(vc.Repository(), commitID)
		if err != nil {
			return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
		}

		if i == 0 && localTip.IsZero() {
			if err := bootstrapTrust(cache, mirror); err != nil {
				return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
			}
		}

		verified, err := VerifyCommit(cache, state, mirror)
		if err != nil {
			return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
		}

		manifest, entries, err := loadManifestAndEntries(mirror, verified)
		if err != nil {
			return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
		}

		targetResults, err := UpdateTargets(cfg, manifest, entries, previousTargetCommits)
		if err != nil {
			return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
		}

		if err := recurseDependencies(cfg, depCtx, manifest, targetResults); err != nil {
			return recoverFromFailure(cfg, localRepo, vc.Repository(), lastGoodCommit, result, err)
		}

		for _, tr := range targetResults {
			if !tr.Excluded {
				previousTargetCommits[tr.Name] = tr.Commit
			}
			result.Warnings = append(result.Warnings, tr.Warnings...)
		}

		result.ValidatedCommits = append(result.ValidatedCommits, commitID)
		result.Targets = targetResults
		lastGoodCommit = commitID
	}

	if err := advanceLocalAR(cfg, localRepo, vc.Repository(), lastGoodCommit); err != nil {
		return nil, err
	}

	if err := checkoutTargets(cfg, result.Targets); err != nil {
		return nil, err
	}

	if err := WriteTrustedState(cfg.Path, lastGoodCommit); err != nil {
		return nil, err
	}

	result.LastValidatedCommit = lastGoodCommit
	return result, nil
}

// seedTrust builds the Role Trust State cache an update starts from: empty
// for a fresh clone (the first commit bootstraps it), or re-derived from
// the local AR's own last validated commit otherwise.
func seedTrust(localRepo *gitinterface.Repository, localTip gitinterface.Hash) (*rolecache.Cache, *MetadataState, error) {
	if localTip.IsZero() {
		return rolecache.New(), NewMetadataState(), nil
	}

	cache := rolecache.New()
	state := NewMetadataState()

	mirror, err := vcstuf.NewGitMirror(localRepo, localTip)
	if err != nil {
		return nil, nil, err
	}

	if err := bootstrapTrust(cache, mirror); err != nil {
		return nil, nil, err
	}

	if _, err := VerifyCommit(cache, state, mirror); err != nil {
		return nil, nil, fmt.Errorf("unable to re-establish trust at previously validated commit '%s': %w", localTip, err)
	}

	return cache, state, nil
}

// bootstrapTrust seeds cache's root, timestamp, snapshot, and targets trust
// states from a root.json with no prior trust anchor: the very first commit
// of a fresh clone, or the local AR's last validated commit when a process
// restarts with no persisted Role Trust State of its own.
func bootstrapTrust(cache *rolecache.Cache, mirror *vcstuf.GitMirror) error {
	rootBytes, err := mirror.GetMetadata(vcstuf.RootRoleName)
	if err != nil {
		return wrapRoleErr(err, mirror, vcstuf.RootRoleName)
	}

	commitDate, err := mirror.EarliestValidExpiration()
	if err != nil {
		return err
	}

	rootState, root, err := vcstuf.BootstrapRoot(rootBytes, commitDate)
	if err != nil {
		return wrapRoleErr(err, mirror, vcstuf.RootRoleName)
	}
	cache.Set(rootState)

	for _, roleName := range []string{vcstuf.TimestampRoleName, vcstuf.SnapshotRoleName, vcstuf.TargetsRoleName} {
		seeded, err := vcstuf.SeedTrustState(root, roleName)
		if err != nil {
			return fmt.Errorf("unable to seed trust for role '%s': %w", roleName, err)
		}
		cache.Set(seeded)
	}

	return nil
}

// readPreviousTargetCommits reconstructs the per-target commit map as it
// stood at the local AR's last validated commit, for the target-force-push
// descendant check.
func readPreviousTargetCommits(localRepo *gitinterface.Repository, commitID gitinterface.Hash) (map[string]gitinterface.Hash, error) {
	mirror, err := vcstuf.NewGitMirror(localRepo, commitID)
	if err != nil {
		return nil, err
	}

	manifestBytes, err := mirror.GetTarget(repositoriesManifestName)
	if err != nil {
		if errors.Is(err, vcstuf.ErrMissingMetadata) {
			return map[string]gitinterface.Hash{}, nil
		}
		return nil, err
	}

	var manifest RepositoriesManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, err
	}

	commits := map[string]gitinterface.Hash{}
	for name := range manifest.Repositories {
		entryBytes, err := mirror.GetTarget(name)
		if err != nil {
			continue
		}

		var entry TargetEntry
		if err := json.Unmarshal(entryBytes, &entry); err != nil {
			continue
		}

		commitID, err := gitinterface.NewHash(entry.Commit)
		if err != nil {
			continue
		}

		commits[name] = commitID
	}

	return commits, nil
}

// recurseDependencies validates any target that declares itself a nested
// authentication repository, bounding how far it may advance by the
// parent's own validated commit.
func recurseDependencies(cfg *config.Config, depCtx *dependency.Context, manifest *RepositoriesManifest, targets []TargetResult) error {
	for _, tr := range targets {
		if tr.Excluded {
			continue
		}

		descriptor := manifest.Repositories[tr.Name]
		if !isDependency(descriptor) || len(descriptor.URLs) == 0 {
			continue
		}

		nestedCtx, err := depCtx.Enter(descriptor.URLs[0], tr.Commit.String())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDependencyCycle, err)
		}

		nestedPath := filepath.Join(cfg.LibraryDir, tr.Name)
		nestedCfg := &config.Config{
			Operation:            config.OperationUpdate,
			URL:                  descriptor.URLs[0],
			Path:                 nestedPath,
			LibraryDir:           filepath.Join(nestedPath, "libraries"),
			ExpectedRepoType:     config.RepoTypeEither,
			Force:                cfg.Force,
			Strict:               cfg.Strict,
			UpdateFromFilesystem: cfg.UpdateFromFilesystem,
		}

		if _, err := os.Stat(filepath.Join(nestedPath, ".git")); err != nil {
			nestedCfg.Operation = config.OperationClone
			if _, err := Clone(nestedCfg, nestedCtx); err != nil {
				return err
			}
			continue
		}

		if _, err := Update(nestedCfg, nestedCtx); err != nil {
			return err
		}
	}

	return nil
}
