// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package vcstuf adapts TUF's root/targets/snapshot/timestamp metadata
// hierarchy to a Git-backed authentication repository, where a single commit
// stands in for a TUF mirror snapshot.
package vcstuf

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
)

var (
	ErrRootKeyNil          = errors.New("root key is nil")
	ErrTargetsKeyNil       = errors.New("targets key is nil")
	ErrKeyIDEmpty          = errors.New("key ID is empty")
	ErrCannotMeetThreshold = errors.New("removing key would drop role below its threshold")
	ErrRootMetadataNil     = errors.New("root metadata has no role entry for root")
	ErrTargetsMetadataNil  = errors.New("root metadata has no role entry for targets")
)

const (
	RootRoleName      = "root"
	TargetsRoleName   = "targets"
	SnapshotRoleName  = "snapshot"
	TimestampRoleName = "timestamp"
)

// Key is a TUF role public key, aliasing the securesystemslib type the way
// the teacher's own TUF schema does.
type Key = signerverifier.SSLibKey

// calculateKeyID recomputes a key's ID from its canonical JSON encoding, the
// same derivation classic TUF and the teacher's schema use.
func calculateKeyID(k *Key) (string, error) {
	key := map[string]any{
		"keytype":               k.KeyType,
		"scheme":                k.Scheme,
		"keyid_hash_algorithms": k.KeyIDHashAlgorithms,
		"keyval": map[string]string{
			"public": k.KeyVal.Public,
		},
	}
	canonical, err := cjson.EncodeCanonical(key)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// LoadKeyFromBytes loads a Key from its PEM or securesystemslib-JSON encoding.
func LoadKeyFromBytes(contents []byte) (*Key, error) {
	key, err := signerverifier.LoadKey(contents)
	if err == nil {
		return key, nil
	}

	var jsonKey Key
	if err := json.Unmarshal(contents, &jsonKey); err != nil {
		return nil, err
	}

	if jsonKey.KeyID == "" {
		keyID, err := calculateKeyID(&jsonKey)
		if err != nil {
			return nil, err
		}
		jsonKey.KeyID = keyID
	}

	return &jsonKey, nil
}

// Role records the key set and threshold trusted for a role entry, whether
// that's a top-level role in Root metadata or a delegation in Targets
// metadata.
type Role struct {
	KeyIDs    []string `json:"keyids"`
	Threshold int      `json:"threshold"`
}

// Signature is a single role signature over a metadata blob's canonical
// "signed" payload.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"`
}

// Signed wraps any one of the role metadata payloads with the signatures
// over its canonical encoding, mirroring classic TUF's signed-envelope
// convention.
type Signed struct {
	Signed     json.RawMessage `json:"signed"`
	Signatures []Signature     `json:"signatures"`
}

// RootMetadata defines the schema of TUF's Root role, adapted to a Git
// mirror: no mirrors/consistent-snapshot fields, since the AR commit itself
// is the one and only mirror location.
type RootMetadata struct {
	Type    string          `json:"type"`
	Version int64           `json:"version"`
	Expires string          `json:"expires"`
	Keys    map[string]*Key `json:"keys"`
	Roles   map[string]Role `json:"roles"`
}

// NewRootMetadata returns a new, empty instance of RootMetadata.
func NewRootMetadata() *RootMetadata {
	return &RootMetadata{Type: "root"}
}

func (r *RootMetadata) AddKey(key *Key) {
	if r.Keys == nil {
		r.Keys = map[string]*Key{}
	}
	r.Keys[key.KeyID] = key
}

func (r *RootMetadata) AddRole(roleName string, role Role) {
	if r.Roles == nil {
		r.Roles = map[string]Role{}
	}
	r.Roles[roleName] = role
}

// TargetsMetadata defines the schema of TUF's Targets role (and, with the
// same shape, every delegated targets role).
type TargetsMetadata struct {
	Type        string         `json:"type"`
	Version     int64          `json:"version"`
	Expires     string         `json:"expires"`
	Targets     map[string]any `json:"targets"`
	Delegations *Delegations   `json:"delegations,omitempty"`
}

// NewTargetsMetadata returns a new, empty instance of TargetsMetadata.
func NewTargetsMetadata() *TargetsMetadata {
	return &TargetsMetadata{Type: "targets"}
}

// Delegations defines the schema for specifying delegations in a Targets
// role's metadata.
type Delegations struct {
	Keys  map[string]*Key `json:"keys"`
	Roles []Delegation    `json:"roles"`
}

// Delegation defines a single delegation entry: a named role, the key set
// and threshold trusted for it, and the path constraint limiting what it may
// speak authoritatively about.
type Delegation struct {
	Name             string   `json:"name"`
	Paths            []string `json:"paths,omitempty"`
	PathHashPrefixes []string `json:"path_hash_prefixes,omitempty"`
	Terminating      bool     `json:"terminating"`
	Role
}

// RolesOrEmpty returns d.Roles, tolerating a nil Delegations so callers
// walking a targets role's delegation tree don't need a separate nil check.
func (d *Delegations) RolesOrEmpty() []Delegation {
	if d == nil {
		return nil
	}
	return d.Roles
}

// SnapshotMetadata records the version of every other metadata file present
// at a commit, the way classic TUF's snapshot role does. Absent from the
// teacher's own RSL-based schema (it has no use for it since Git itself
// plays snapshot's role there) but required here: this spec's commit-as-
// mirror design needs an explicit snapshot role to detect a targets-role
// rollback independent of the targets file's own version field.
type SnapshotMetadata struct {
	Type        string                  `json:"type"`
	Version     int64                   `json:"version"`
	Expires     string                  `json:"expires"`
	MetaVersion map[string]MetadataInfo `json:"meta"`
}

// MetadataInfo is the version recorded in Snapshot/Timestamp metadata for
// one other metadata file.
type MetadataInfo struct {
	Version int64 `json:"version"`
}

// TimestampMetadata records the current snapshot's version (and, in classic
// TUF, its hash), signed with a key rotated more frequently than the other
// roles.
type TimestampMetadata struct {
	Type    string                  `json:"type"`
	Version int64                   `json:"version"`
	Expires string                  `json:"expires"`
	Meta    map[string]MetadataInfo `json:"meta"`
}
