// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"errors"

	"github.com/gitauth/gitauth/internal/config"
)

// collectWarning applies the "collect, then escalate" policy (§9): under a
// non-strict Config it returns w unchanged for the caller to append to a
// Result's Warnings; under a strict Config it instead returns an
// *UpdateFailed wrapping ErrStrictWarning, so the caller aborts exactly as
// it would for any other validation failure.
func collectWarning(cfg *config.Config, w Warning) (*Warning, error) {
	if cfg.Strict {
		return nil, &UpdateFailed{Kind: ErrStrictWarning, Commit: w.Commit, Role: w.Role, Target: w.Target, Inner: errors.New(w.Message)}
	}

	return &w, nil
}
