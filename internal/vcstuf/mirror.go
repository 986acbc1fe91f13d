// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package vcstuf

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gitauth/gitauth/internal/gitinterface"
)

const (
	MetadataDir = "metadata"
	TargetsDir  = "targets"
)

// GitMirror adapts a single commit of a Git-backed authentication repository
// to the interface a TUF verifier expects: fetch a named role's metadata, or
// a named target file, as they stood at that one commit. Because the commit
// is the only mirror location, a request either resolves (bytes returned) or
// fails outright; there is no mirror-iteration loop to port.
type GitMirror struct {
	repo     *gitinterface.Repository
	commitID gitinterface.Hash
	treeID   gitinterface.Hash
}

// NewGitMirror builds a mirror fixed to commitID.
func NewGitMirror(repo *gitinterface.Repository, commitID gitinterface.Hash) (*GitMirror, error) {
	treeID, err := repo.GetCommitTreeID(commitID)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve tree for commit '%s': %w", commitID, err)
	}

	return &GitMirror{repo: repo, commitID: commitID, treeID: treeID}, nil
}

// CommitID returns the commit this mirror is fixed to.
func (m *GitMirror) CommitID() gitinterface.Hash {
	return m.commitID
}

// GetMetadata reads metadata/<role>.json as it stood at this mirror's
// commit.
func (m *GitMirror) GetMetadata(role string) ([]byte, error) {
	return m.readFile(path.Join(MetadataDir, role+".json"))
}

// GetTarget reads targets/<targetPath> as it stood at this mirror's commit.
func (m *GitMirror) GetTarget(targetPath string) ([]byte, error) {
	return m.readFile(path.Join(TargetsDir, targetPath))
}

// ListTargets recursively lists every path under targets/ at this mirror's
// commit, relative to that directory.
func (m *GitMirror) ListTargets() ([]string, error) {
	allFiles, err := m.repo.GetAllFilesInTree(m.treeID)
	if err != nil {
		return nil, fmt.Errorf("unable to list targets at commit '%s': %w", m.commitID, err)
	}

	prefix := TargetsDir + "/"
	paths := []string{}
	for filePath := range allFiles {
		if rel, ok := strings.CutPrefix(filePath, prefix); ok && rel != "" {
			paths = append(paths, rel)
		}
	}

	return paths, nil
}

// EarliestValidExpiration returns the commit's own author date: the
// historical "now" against which this commit's metadata must not be
// considered expired. Older AR commits legitimately carry older expiration
// stamps, so "now" here is never wall-clock time.
func (m *GitMirror) EarliestValidExpiration() (time.Time, error) {
	return m.repo.GetCommitDate(m.commitID)
}

func (m *GitMirror) readFile(filePath string) ([]byte, error) {
	blobID, err := m.repo.GetPathIDInTree(filePath, m.treeID)
	if err != nil {
		if errors.Is(err, gitinterface.ErrTreeDoesNotHavePath) {
			return nil, fmt.Errorf("%w: '%s' at commit '%s'", ErrMissingMetadata, filePath, m.commitID)
		}
		return nil, fmt.Errorf("unable to resolve '%s' at commit '%s': %w", filePath, m.commitID, err)
	}

	contents, err := m.repo.ReadBlob(blobID)
	if err != nil {
		return nil, fmt.Errorf("unable to read '%s' at commit '%s': %w", filePath, m.commitID, err)
	}

	return contents, nil
}
