// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"encoding/json"

	"github.com/gitauth/gitauth/internal/gitinterface"
)

// TargetEntry is the targets/<name> file contract: at minimum a commit SHA,
// optionally a branch, with any extra keys preserved but ignored.
type TargetEntry struct {
	Commit string         `json:"commit"`
	Branch string         `json:"branch,omitempty"`
	Extra  map[string]any `json:"-"`
}

// UnmarshalJSON preserves unrecognized keys in Extra instead of discarding
// them, matching the "optional extra keys preserved but ignored" contract.
func (t *TargetEntry) UnmarshalJSON(data []byte) error {
	type alias TargetEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "commit")
	delete(raw, "branch")

	extra := map[string]any{}
	for key, value := range raw {
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		extra[key] = v
	}

	*t = TargetEntry(a)
	t.Extra = extra
	return nil
}

// RepositoryDescriptor is one entry of repositories.json: the mirror URLs to
// try, in order, and an opaque custom block.
type RepositoryDescriptor struct {
	URLs   []string       `json:"urls"`
	Custom CustomMetadata `json:"custom"`
}

// CustomMetadata is the free-form custom block a repositories.json entry may
// carry. Type tags what kind of target this is; Dependency marks it as a
// nested authentication repository.
type CustomMetadata struct {
	Type       string `json:"type,omitempty"`
	Dependency bool   `json:"dependency,omitempty"`
}

// RepositoriesManifest is the targets/repositories.json contract.
type RepositoriesManifest struct {
	Repositories map[string]RepositoryDescriptor `json:"repositories"`
}

// TrustedState is the persisted last_validated_commit record.
type TrustedState struct {
	LastValidatedCommit gitinterface.Hash
}

// TargetResult records the outcome of advancing one target repository.
type TargetResult struct {
	Name     string
	Commit   gitinterface.Hash
	Branch   string
	Excluded bool
	Skipped  bool
	Warnings []Warning
}

// Warning is a non-fatal condition surfaced to the caller. Under a strict
// Config, every Warning is instead escalated to an *UpdateFailed error.
type Warning struct {
	Message string
	Commit  gitinterface.Hash
	Role    string
	Target  string
}

// Result is returned by both Clone and Update on success.
type Result struct {
	LastValidatedCommit gitinterface.Hash
	ValidatedCommits    []gitinterface.Hash
	Targets             []TargetResult
	Warnings            []Warning
}
