// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package vcstuf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danwakefield/fnmatch"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
)

var (
	ErrInvalidSignatures = errors.New("signature verification failed")
	ErrThresholdUnmet    = errors.New("signature threshold not met")
	ErrExpiredMetadata   = errors.New("metadata has expired")
	ErrRollbackAttempted = errors.New("metadata version decreased")
	ErrMissingMetadata   = errors.New("metadata file not found at commit")
)

// VerifyThreshold checks that `signed`'s canonical payload is signed by at
// least `threshold` distinct keys drawn from `keys`, using the key IDs
// recorded in `keyIDs` as the trusted set for the role being checked.
func VerifyThreshold(signed *Signed, keys map[string]*Key, keyIDs []string, threshold int) error {
	trusted := map[string]bool{}
	for _, id := range keyIDs {
		trusted[id] = true
	}

	verified := map[string]bool{}
	for _, sig := range signed.Signatures {
		if !trusted[sig.KeyID] {
			continue
		}

		key, ok := keys[sig.KeyID]
		if !ok {
			continue
		}

		if err := verifySignature(signed.Signed, sig, key); err != nil {
			continue
		}

		verified[sig.KeyID] = true
	}

	if len(verified) < threshold {
		return fmt.Errorf("%w: got %d of %d required signatures", ErrThresholdUnmet, len(verified), threshold)
	}

	return nil
}

func verifySignature(payload []byte, sig Signature, key *Key) error {
	verifier, err := signerverifier.NewVerifierFromSSLibKey(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignatures, err)
	}

	sigBytes, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return fmt.Errorf("%w: invalid signature encoding: %w", ErrInvalidSignatures, err)
	}

	if err := verifier.Verify(context.Background(), payload, sigBytes); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignatures, err)
	}

	return nil
}

// CheckExpiration applies the historical expiration rule: a role has expired
// iff its `expires` timestamp precedes max(commitDate, previousExpirySeen).
// previousExpirySeen blocks a re-signer from rolling expiration backward to
// make metadata appear fresh again at an old commit.
func CheckExpiration(expires string, commitDate, previousExpirySeen time.Time) error {
	expiresAt, err := time.Parse(time.RFC3339, expires)
	if err != nil {
		return fmt.Errorf("invalid expiration timestamp %q: %w", expires, err)
	}

	floor := commitDate
	if previousExpirySeen.After(floor) {
		floor = previousExpirySeen
	}

	if expiresAt.Before(floor) {
		return fmt.Errorf("%w: expires %s, required no earlier than %s", ErrExpiredMetadata, expiresAt, floor)
	}

	return nil
}

// CheckVersionMonotonic enforces that a role's version never decreases
// across consecutive AR commits.
func CheckVersionMonotonic(previousVersion, newVersion int64) error {
	if newVersion < previousVersion {
		return fmt.Errorf("%w: version dropped from %d to %d", ErrRollbackAttempted, previousVersion, newVersion)
	}
	return nil
}

// MatchesPaths returns true if target matches any of the delegation's
// `paths` glob patterns or `path_hash_prefixes` hex-digest prefixes. An
// empty constraint set matches nothing, the same "must be explicit" rule
// the teacher's own Delegation.Matches enforces.
func (d *Delegation) MatchesPaths(target string) bool {
	for _, pattern := range d.Paths {
		if fnmatch.Match(pattern, target, 0) {
			return true
		}
	}

	if len(d.PathHashPrefixes) > 0 {
		digest := sha256.Sum256([]byte(target))
		hexDigest := hex.EncodeToString(digest[:])
		for _, prefix := range d.PathHashPrefixes {
			if strings.HasPrefix(hexDigest, prefix) {
				return true
			}
		}
	}

	return false
}
