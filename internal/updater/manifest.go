// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"encoding/json"
	"fmt"

	"github.com/gitauth/gitauth/internal/config"
	"github.com/gitauth/gitauth/internal/vcstuf"
)

const repositoriesManifestName = "repositories.json"

// loadManifestAndEntries reads repositories.json and every targets/<name>
// file named in it from mirror, checking that each target's file is
// authoritatively claimed by the targets role (or a delegation covering it)
// that verified returns, and that the manifest and the target files agree.
func loadManifestAndEntries(mirror *vcstuf.GitMirror, verified *VerifiedTargets) (*RepositoriesManifest, map[string]*TargetEntry, error) {
	manifestBytes, err := mirror.GetTarget(repositoriesManifestName)
	if err != nil {
		return nil, nil, wrapRoleErr(fmt.Errorf("%w: %w", ErrInconsistentManifest, err), mirror, "")
	}

	var manifest RepositoriesManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, nil, wrapRoleErr(fmt.Errorf("%w: invalid repositories.json: %w", ErrInconsistentManifest, err), mirror, "")
	}

	entries := map[string]*TargetEntry{}
	for name := range manifest.Repositories {
		role, ok := verified.AuthoritativeRole(name)
		if !ok {
			return nil, nil, &UpdateFailed{Kind: ErrInconsistentManifest, Commit: mirror.CommitID(), Target: name, Inner: fmt.Errorf("no role is authoritative for target '%s'", name)}
		}

		entryBytes, err := mirror.GetTarget(name)
		if err != nil {
			return nil, nil, &UpdateFailed{Kind: ErrMissingTarget, Commit: mirror.CommitID(), Target: name, Role: role, Inner: err}
		}

		var entry TargetEntry
		if err := json.Unmarshal(entryBytes, &entry); err != nil {
			return nil, nil, &UpdateFailed{Kind: ErrInconsistentManifest, Commit: mirror.CommitID(), Target: name, Inner: fmt.Errorf("invalid target file: %w", err)}
		}

		entries[name] = &entry
	}

	return &manifest, entries, nil
}

// isDependency reports whether a repositories.json entry declares itself a
// nested authentication repository.
func isDependency(descriptor RepositoryDescriptor) bool {
	return descriptor.Custom.Dependency
}

// expectedRepoTypeMatches checks a mirror's sentinel test-auth-repo target
// file against the caller's expected repo type.
func expectedRepoTypeMatches(mirror *vcstuf.GitMirror, expected config.RepoType) error {
	if expected == config.RepoTypeEither {
		return nil
	}

	targets, err := mirror.ListTargets()
	if err != nil {
		return err
	}

	isTest := false
	for _, name := range targets {
		if name == config.TestAuthRepoSentinel {
			isTest = true
			break
		}
	}

	if isTest && expected == config.RepoTypeOfficial {
		return fmt.Errorf("%w: repository is a test authentication repository, official was expected", ErrUnexpectedRepoType)
	}
	if !isTest && expected == config.RepoTypeTest {
		return fmt.Errorf("%w: repository is an official authentication repository, test was expected", ErrUnexpectedRepoType)
	}

	return nil
}
