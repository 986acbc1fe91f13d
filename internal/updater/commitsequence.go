// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"fmt"
	"log/slog"

	"github.com/gitauth/gitauth/internal/gitinterface"
)

// CommitSequence computes the ordered list of remote AR commits that still
// need validation: every commit reachable from branch's tip in the
// validation clone that is not reachable from localTip, in parent-to-child
// order. If localTip is the zero hash (first clone), the full history of
// branch is returned.
//
// If localTip is set and is not an ancestor of the remote branch tip, the
// local AR has diverged from the remote (a force push on the AR itself);
// this is fatal unless noUpstream or force is set by the caller.
func CommitSequence(validation *gitinterface.Repository, branch string, localTip gitinterface.Hash, noUpstream bool) ([]gitinterface.Hash, error) {
	branchRef := gitinterface.BranchReferenceName(branch)

	remoteTip, err := validation.GetReference(branchRef)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to resolve branch '%s' in validation clone: %w", ErrGitError, branch, err)
	}

	if localTip.IsZero() {
		slog.Debug("No local commit recorded, computing full history", "branch", branch)
		return validation.GetCommitsBetweenRange(remoteTip, gitinterface.ZeroHash)
	}

	if !noUpstream {
		isAncestor, err := validation.KnowsCommit(remoteTip, localTip)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to check ancestry of local commit '%s': %w", ErrGitError, localTip, err)
		}
		if !isAncestor {
			return nil, fmt.Errorf("%w: local commit '%s' is not an ancestor of remote branch '%s'", ErrForcePushDetected, localTip, branch)
		}
	}

	return validation.GetCommitsBetweenRange(remoteTip, localTip)
}
