// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitauth/gitauth/internal/gitinterface"
	"github.com/natefinch/atomic"
)

// trustedStateFileName is the file under an AR's working directory that
// persists the last validated commit.
const trustedStateFileName = "last_validated_commit"

// ReadTrustedState reads the last_validated_commit file from an AR's
// working directory. A missing file is not an error: it means no commit has
// been validated yet (first clone).
func ReadTrustedState(arPath string) (gitinterface.Hash, error) {
	contents, err := os.ReadFile(filepath.Join(arPath, trustedStateFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gitinterface.ZeroHash, nil
		}
		return gitinterface.ZeroHash, fmt.Errorf("unable to read trusted state: %w", err)
	}

	commitID, err := gitinterface.NewHash(strings.TrimSpace(string(contents)))
	if err != nil {
		return gitinterface.ZeroHash, fmt.Errorf("trusted state file contains invalid commit ID: %w", err)
	}

	return commitID, nil
}

// WriteTrustedState atomically writes commitID as the last validated commit
// for the AR at arPath (temp file plus rename, so a reader never observes a
// partial write).
func WriteTrustedState(arPath string, commitID gitinterface.Hash) error {
	return atomic.WriteFile(filepath.Join(arPath, trustedStateFileName), bytes.NewBufferString(commitID.String()+"\n"))
}
