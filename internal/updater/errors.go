// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"errors"
	"fmt"

	"github.com/gitauth/gitauth/internal/gitinterface"
)

var (
	// ErrGitError wraps network, auth, or repository-shape problems
	// surfaced by the Git Backend.
	ErrGitError = errors.New("git operation failed")

	// ErrForcePushDetected is returned when the local AR's tip is not an
	// ancestor of the remote AR's branch tip.
	ErrForcePushDetected = errors.New("authentication repository force push detected")

	// ErrTargetForcePush is returned when a target repository's commit is
	// not a descendant of the commit previously validated for it.
	ErrTargetForcePush = errors.New("target repository force push detected")

	// ErrMissingTarget is returned when a target path declared in
	// repositories.json has no corresponding targets/<name> file, or vice
	// versa.
	ErrMissingTarget = errors.New("target file missing")

	// ErrInconsistentManifest is returned when repositories.json and the
	// targets/ directory disagree about what targets exist.
	ErrInconsistentManifest = errors.New("repositories.json is inconsistent with targets")

	// ErrDependencyCycle is returned when a nested authentication
	// repository depends, directly or transitively, on itself.
	ErrDependencyCycle = errors.New("dependency cycle detected among authentication repositories")

	// ErrUnexpectedRepoType is returned when the caller's expected AR
	// type doesn't match the repository being validated.
	ErrUnexpectedRepoType = errors.New("authentication repository is not of the expected type")

	// ErrNoValidCommits is returned by Clone when the remote AR's
	// expected branch has no commits at all.
	ErrNoValidCommits = errors.New("remote authentication repository has no commits to validate")

	// ErrStrictWarning is the Kind on an UpdateFailed produced when a
	// Config with Strict set escalates a collected Warning into a fatal
	// error instead of merely recording it on the Result.
	ErrStrictWarning = errors.New("warning escalated to error under strict mode")
)

// UpdateFailed wraps a failure encountered validating or advancing a single
// commit, carrying enough context for a caller to report or retry it.
type UpdateFailed struct {
	Kind   error
	Commit gitinterface.Hash
	Role   string
	Target string
	Inner  error
}

func (e *UpdateFailed) Error() string {
	switch {
	case e.Role != "" && e.Commit.IsZero():
		return fmt.Sprintf("update failed: %s (role '%s'): %s", e.Kind, e.Role, e.Inner)
	case e.Role != "":
		return fmt.Sprintf("update failed at commit '%s' (role '%s'): %s", e.Commit, e.Role, e.Inner)
	case e.Target != "":
		return fmt.Sprintf("update failed at commit '%s' (target '%s'): %s", e.Commit, e.Target, e.Inner)
	case !e.Commit.IsZero():
		return fmt.Sprintf("update failed at commit '%s': %s", e.Commit, e.Inner)
	default:
		return fmt.Sprintf("update failed: %s: %s", e.Kind, e.Inner)
	}
}

func (e *UpdateFailed) Unwrap() error {
	return e.Kind
}
