// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"strings"
)

// GetCommitsBetweenRange returns the commits reachable from commitNewID that
// are not reachable from commitOldID. If commitOldID is the zero hash, every
// commit reachable from commitNewID is returned.
//
// The commits are returned in parent-to-child order: the commit closest to
// commitOldID (or the root commit, if commitOldID is zero) comes first and
// commitNewID comes last. Callers that replay per-commit state, such as a
// historical metadata walk, depend on this ordering and must not re-sort by
// commit ID.
func (r *Repository) GetCommitsBetweenRange(commitNewID, commitOldID Hash) ([]Hash, error) {
	if err := r.ensureIsCommit(commitNewID); err != nil {
		return nil, err
	}

	var rangeArg string
	if commitOldID.IsZero() {
		rangeArg = commitNewID.String()
	} else {
		if err := r.ensureIsCommit(commitOldID); err != nil {
			return nil, err
		}
		rangeArg = fmt.Sprintf("%s..%s", commitOldID.String(), commitNewID.String())
	}

	stdOut, err := r.executor("rev-list", "--reverse", "--topo-order", rangeArg).executeString()
	if err != nil {
		return nil, fmt.Errorf("unable to identify commits between range: %w", err)
	}

	if stdOut == "" {
		return nil, nil
	}

	commitIDStrings := strings.Split(stdOut, "\n")
	commitRange := make([]Hash, 0, len(commitIDStrings))
	for _, id := range commitIDStrings {
		if id == "" {
			continue
		}

		hash, err := NewHash(id)
		if err != nil {
			return nil, fmt.Errorf("invalid commit ID '%s': %w", id, err)
		}

		commitRange = append(commitRange, hash)
	}

	return commitRange, nil
}
