// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"encoding/hex"
	"errors"
)

const (
	zeroSHA1HashString   = "0000000000000000000000000000000000000000"
	zeroSHA256HashString = "0000000000000000000000000000000000000000000000000000000000000000"
)

var (
	ErrInvalidHashEncoding = errors.New("hash string is not hex encoded")
	ErrInvalidHashLength   = errors.New("hash string is wrong length")
)

// Hash identifies a Git object (commit, tree, or blob) by its SHA-1 or
// SHA-256 object ID. Every commit walked by the commit sequence (C3), every
// role's metadata blob read by the Git-backed TUF mirror (C4), and every
// target entry's recorded commit (C6) is passed around as a Hash rather
// than a bare string, so a truncated or malformed ID is caught at
// construction time via NewHash instead of surfacing as a confusing git
// subprocess error later.
type Hash struct {
	hash string
}

// ZeroHash is the all-zero Git object ID, used as a sentinel for "no
// commit yet" (an AR with no validated history) and "no parent" (the first
// commit on a branch).
var ZeroHash = Hash{hash: zeroSHA1HashString}

// NewHash validates h as a hex-encoded SHA-1 or SHA-256 object ID and
// wraps it.
func NewHash(h string) (Hash, error) {
	if len(h) != len(zeroSHA1HashString) && len(h) != len(zeroSHA256HashString) {
		return ZeroHash, ErrInvalidHashLength
	}

	if _, err := hex.DecodeString(h); err != nil {
		return ZeroHash, ErrInvalidHashEncoding
	}

	return Hash{hash: h}, nil
}

func (h Hash) String() string {
	return h.hash
}

// IsZero reports whether h is the zero-value sentinel, i.e. ZeroHash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Equal reports whether h and other identify the same Git object.
func (h Hash) Equal(other Hash) bool {
	return h.hash == other.hash
}
