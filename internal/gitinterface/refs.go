// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// Reference namespaces gitauth cares about: the authentication repository's
// own branch, a target repository's branch, and whatever remote-tracking or
// tag refs either of those might carry along.
const (
	RefPrefix       = "refs/"
	BranchRefPrefix = "refs/heads/"
	TagRefPrefix    = "refs/tags/"
	RemoteRefPrefix = "refs/remotes/"
)

const DefaultRemoteName = "origin"

var ErrReferenceNotFound = errors.New("requested Git reference not found")

// GetReference returns the tip of the specified Git reference.
func (r *Repository) GetReference(refName string) (Hash, error) {
	refTipID, err := r.executor("rev-parse", refName).executeString()
	if err != nil {
		if strings.Contains(err.Error(), "unknown revision or path not in the working tree") {
			return ZeroHash, ErrReferenceNotFound
		}
		return ZeroHash, fmt.Errorf("unable to read reference '%s': %w", refName, err)
	}

	hash, err := NewHash(refTipID)
	if err != nil {
		return ZeroHash, fmt.Errorf("invalid Git ID for reference '%s': %w", refName, err)
	}

	return hash, nil
}

// GetRemoteReference queries remoteName directly for the current tip of
// refName, without fetching it into a local tracking ref first. The commit
// sequence (internal/updater) relies on the local AR clone's own tracking
// refs after a fetch instead, but this is useful wherever a caller needs the
// remote's view of a branch before deciding whether a fetch is worthwhile.
func (r *Repository) GetRemoteReference(remoteName, refName string) (Hash, error) {
	stdOut, err := r.executor("ls-remote", remoteName, refName).executeString()
	if err != nil {
		return ZeroHash, fmt.Errorf("unable to query remote '%s' for '%s': %w", remoteName, refName, err)
	}
	if stdOut == "" {
		return ZeroHash, ErrReferenceNotFound
	}

	fields := strings.Fields(stdOut)
	if len(fields) == 0 {
		return ZeroHash, ErrReferenceNotFound
	}

	hash, err := NewHash(fields[0])
	if err != nil {
		return ZeroHash, fmt.Errorf("invalid Git ID for remote reference '%s': %w", refName, err)
	}

	return hash, nil
}

// SetReference sets the specified reference to the provided Git ID. The
// target repo updater (C6) and the recovery path (C8) both use this to move
// a branch to a commit that has already passed verification.
func (r *Repository) SetReference(refName string, gitID Hash) error {
	_, err := r.executor("update-ref", "--create-reflog", refName, gitID.String()).executeString()
	if err != nil {
		return fmt.Errorf("unable to set Git reference '%s' to '%s': %w", refName, gitID.String(), err)
	}

	return nil
}

// DeleteReference deletes the specified Git reference.
func (r *Repository) DeleteReference(refName string) error {
	_, err := r.executor("update-ref", "-d", refName).executeString()
	if err != nil {
		return fmt.Errorf("unable to delete Git reference '%s': %w", refName, err)
	}
	return nil
}

// CheckAndSetReference sets the specified reference to the provided Git ID if
// the reference is currently set to oldGitID. This gives callers a
// compare-and-swap primitive for refs that multiple processes might touch.
func (r *Repository) CheckAndSetReference(refName string, newGitID, oldGitID Hash) error {
	_, err := r.executor("update-ref", "--create-reflog", refName, newGitID.String(), oldGitID.String()).executeString()
	if err != nil {
		return fmt.Errorf("unable to set Git reference '%s' to '%s': %w", refName, newGitID.String(), err)
	}

	return nil
}

// GetSymbolicReferenceTarget returns the name of the Git reference the provided
// symbolic Git reference is pointing to.
func (r *Repository) GetSymbolicReferenceTarget(refName string) (string, error) {
	symTarget, err := r.executor("symbolic-ref", refName).executeString()
	if err != nil {
		return "", fmt.Errorf("unable to resolve %s: %w", refName, err)
	}

	return symTarget, nil
}

// SetSymbolicReference sets the specified symbolic reference to the specified
// target reference.
func (r *Repository) SetSymbolicReference(symRefName, targetRefName string) error {
	_, err := r.executor("symbolic-ref", symRefName, targetRefName).executeString()
	if err != nil {
		return fmt.Errorf("unable to set symbolic Git reference '%s' to '%s': %w", symRefName, targetRefName, err)
	}

	return nil
}

// AbsoluteReference returns the fully qualified reference path for the
// provided ref, which may be a branch name, tag name, or already-qualified
// reference such as the AR's own arBranch.
// Source: https://git-scm.com/docs/gitrevisions#Documentation/gitrevisions.txt-emltrefnamegtemegemmasterememheadsmasterememrefsheadsmasterem
func (r *Repository) AbsoluteReference(target string) (string, error) {
	_, err := os.Stat(path.Join(r.gitDirPath, target))
	if err == nil {
		if strings.HasPrefix(target, RefPrefix) {
			// not symbolic ref
			return target, nil
		}
		// symbolic ref such as .git/HEAD
		return r.GetSymbolicReferenceTarget(target)
	}

	// We may have a ref that isn't available locally but is still ref-prefixed.
	if strings.HasPrefix(target, RefPrefix) {
		return target, nil
	}

	// If target is a full ref already and it's stored in the GIT_DIR/refs
	// directory, we don't reach this point. Below, we handle cases where the
	// ref may be packed.

	// Check if custom reference
	customName := CustomReferenceName(target)
	_, err = r.GetReference(customName)
	if err == nil {
		return customName, nil
	}
	if !errors.Is(err, ErrReferenceNotFound) {
		return "", err
	}

	// Check if tag
	tagName := TagReferenceName(target)
	_, err = r.GetReference(tagName)
	if err == nil {
		return tagName, nil
	}
	if !errors.Is(err, ErrReferenceNotFound) {
		return "", err
	}

	// Check if branch
	branchName := BranchReferenceName(target)
	_, err = r.GetReference(branchName)
	if err == nil {
		return branchName, nil
	}
	if !errors.Is(err, ErrReferenceNotFound) {
		return "", err
	}

	// Check if remote tracker ref
	remoteRefName := RemoteReferenceName(target)
	_, err = r.GetReference(remoteRefName)
	if err == nil {
		return remoteRefName, nil
	}
	if !errors.Is(err, ErrReferenceNotFound) {
		return "", err
	}

	remoteRefHEAD := path.Join(remoteRefName, "HEAD")
	_, err = r.GetReference(remoteRefHEAD)
	if err == nil {
		return remoteRefHEAD, nil
	}
	if !errors.Is(err, ErrReferenceNotFound) {
		return "", err
	}

	return "", ErrReferenceNotFound
}

// RefSpec builds a Git refspec for refName. Target repo fetches (C6) pass
// fastForwardOnly=false deliberately: a rejected fast-forward there would
// otherwise surface as an opaque git error instead of the force-push
// detection this updater needs to run itself. For more on the refspec
// format, see https://git-scm.com/book/en/v2/Git-Internals-The-Refspec.
func (r *Repository) RefSpec(refName, remoteName string, fastForwardOnly bool) (string, error) {
	var (
		refPath string
		err     error
	)

	refPath = refName
	if !strings.HasPrefix(refPath, RefPrefix) {
		refPath, err = r.AbsoluteReference(refName)
		if err != nil {
			return "", err
		}
	}

	if strings.HasPrefix(refPath, TagRefPrefix) {
		// TODO: check if this is correct, AFAICT tags aren't tracked in the
		// remotes namespace.
		fastForwardOnly = true
	}

	// local is always refPath, destination depends on remoteName
	localPath := refPath
	var remotePath string
	if len(remoteName) > 0 {
		remotePath = RemoteRef(refPath, remoteName)
	} else {
		remotePath = refPath
	}

	refSpecString := fmt.Sprintf("%s:%s", localPath, remotePath)
	if !fastForwardOnly {
		refSpecString = fmt.Sprintf("+%s", refSpecString)
	}

	return refSpecString, nil
}

// RemoteRef maps a local reference name to its remote-tracking equivalent
// under remoteName, e.g. refs/heads/main -> refs/remotes/origin/main.
func RemoteRef(refName, remoteName string) string {
	var remotePath string
	switch {
	case strings.HasPrefix(refName, BranchRefPrefix):
		rest := strings.TrimPrefix(refName, BranchRefPrefix)
		remotePath = path.Join(RemoteRefPrefix, remoteName, rest)
	case strings.HasPrefix(refName, TagRefPrefix):
		// tags aren't remapped into the remotes namespace
		remotePath = refName
	default:
		rest := strings.TrimPrefix(refName, RefPrefix)
		remotePath = path.Join(RemoteRefPrefix, remoteName, rest)
	}

	return remotePath
}

// CustomReferenceName returns the full reference name in the form
// `refs/<customName>`.
func CustomReferenceName(customName string) string {
	if strings.HasPrefix(customName, RefPrefix) {
		return customName
	}

	return fmt.Sprintf("%s%s", RefPrefix, customName)
}

// TagReferenceName returns the full reference name for the specified tag in the
// form `refs/tags/<tagName>`.
func TagReferenceName(tagName string) string {
	if strings.HasPrefix(tagName, TagRefPrefix) {
		return tagName
	}

	return fmt.Sprintf("%s%s", TagRefPrefix, tagName)
}

// BranchReferenceName returns the full reference name for the specified
// branch in the form `refs/heads/<branchName>`. Both the AR's own branch
// (arBranch in internal/updater) and every target repo's declared branch are
// normalized through this before being passed to the Git backend.
func BranchReferenceName(branchName string) string {
	if strings.HasPrefix(branchName, BranchRefPrefix) {
		return branchName
	}

	return fmt.Sprintf("%s%s", BranchRefPrefix, branchName)
}

// RemoteReferenceName returns the full reference name in the form
// `refs/remotes/<name>`.
func RemoteReferenceName(name string) string {
	if strings.HasPrefix(name, RemoteRefPrefix) {
		return name
	}

	return fmt.Sprintf("%s%s", RemoteRefPrefix, name)
}

// AddRemote registers remoteName pointing at url. Used to wire up a target
// repository's upstream during its first clone and, in tests, to point a
// local fixture repository at a fixture remote.
func (r *Repository) AddRemote(remoteName, url string) error {
	_, err := r.executor("remote", "add", remoteName, url).executeString()
	if err != nil {
		return fmt.Errorf("unable to add remote '%s': %w", remoteName, err)
	}
	return nil
}

// RemoveRemote removes the registration of remoteName.
func (r *Repository) RemoveRemote(remoteName string) error {
	_, err := r.executor("remote", "remove", remoteName).executeString()
	if err != nil {
		return fmt.Errorf("unable to remove remote '%s': %w", remoteName, err)
	}
	return nil
}

// GetRemoteURL returns the URL configured for remoteName.
func (r *Repository) GetRemoteURL(remoteName string) (string, error) {
	url, err := r.executor("remote", "get-url", remoteName).executeString()
	if err != nil {
		return "", fmt.Errorf("unable to read URL for remote '%s': %w", remoteName, err)
	}
	return url, nil
}
