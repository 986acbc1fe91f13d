// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package vcstuf

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoleTrustState is the in-memory trust record for one TUF role, carried
// forward from the commit it was last accepted at to the next commit under
// validation. It is intentionally a plain value, not a singleton: the
// Per-Commit Verifier is handed one explicitly and returns an updated one,
// rather than mutating a process-global cache.
type RoleTrustState struct {
	Name               string
	Keys               map[string]*Key
	KeyIDs             []string
	Threshold          int
	Version            int64
	Expires            time.Time
	PreviousExpirySeen time.Time
	Delegations        []Delegation
}

// VerifyRoot drives the root update chain for a single candidate root.json
// read at commitDate. It verifies the candidate against trusted's key set
// and threshold, and also against the candidate's own key set and threshold
// (the TUF root "cross-sign" requirement), then returns the new trust state
// for the root role.
func VerifyRoot(trusted *RoleTrustState, candidateBytes []byte, commitDate time.Time) (*RoleTrustState, error) {
	var signed Signed
	if err := json.Unmarshal(candidateBytes, &signed); err != nil {
		return nil, fmt.Errorf("invalid root metadata envelope: %w", err)
	}

	var root RootMetadata
	if err := json.Unmarshal(signed.Signed, &root); err != nil {
		return nil, fmt.Errorf("invalid root metadata payload: %w", err)
	}

	if err := CheckVersionMonotonic(trusted.Version, root.Version); err != nil {
		return nil, err
	}

	rootRole, ok := root.Roles[RootRoleName]
	if !ok {
		return nil, fmt.Errorf("%w: candidate root has no root role entry", ErrInvalidSignatures)
	}

	// Verify against the previously trusted key set and threshold.
	if err := VerifyThreshold(&signed, trusted.Keys, trusted.KeyIDs, trusted.Threshold); err != nil {
		return nil, err
	}

	// Cross-sign: also verify against the candidate's own key set and
	// threshold, so a compromised old key set cannot alone rotate root.
	if err := VerifyThreshold(&signed, root.Keys, rootRole.KeyIDs, rootRole.Threshold); err != nil {
		return nil, err
	}

	if err := CheckExpiration(root.Expires, commitDate, trusted.PreviousExpirySeen); err != nil {
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, root.Expires)
	if err != nil {
		return nil, fmt.Errorf("invalid root expiration: %w", err)
	}

	previousExpirySeen := trusted.PreviousExpirySeen
	if expiresAt.After(previousExpirySeen) {
		previousExpirySeen = expiresAt
	}

	return &RoleTrustState{
		Name:               RootRoleName,
		Keys:               root.Keys,
		KeyIDs:             rootRole.KeyIDs,
		Threshold:          rootRole.Threshold,
		Version:            root.Version,
		Expires:            expiresAt,
		PreviousExpirySeen: previousExpirySeen,
	}, nil
}

// SeedTrustState builds the initial trust state for a top-level role
// (timestamp, snapshot, or targets) from an already-verified root's key
// declarations. The Orchestrator calls this only when bootstrapping trust
// from a root.json; a later root update that changes a role's key set or
// threshold does not reseed that role.
func SeedTrustState(root *RootMetadata, roleName string) (*RoleTrustState, error) {
	role, ok := root.Roles[roleName]
	if !ok {
		return nil, fmt.Errorf("root metadata has no role entry for '%s'", roleName)
	}

	return &RoleTrustState{
		Name:      roleName,
		Keys:      root.Keys,
		KeyIDs:    role.KeyIDs,
		Threshold: role.Threshold,
	}, nil
}

// BootstrapRoot accepts a root.json with no prior trust anchor, verifying it
// only against its own declared keys and threshold (trust-on-first-use).
// Callers use this exactly once, for the very first commit of a brand new
// clone; every subsequent commit's root is verified by VerifyRoot against
// the trust state this returns.
func BootstrapRoot(candidateBytes []byte, commitDate time.Time) (*RoleTrustState, *RootMetadata, error) {
	var signed Signed
	if err := json.Unmarshal(candidateBytes, &signed); err != nil {
		return nil, nil, fmt.Errorf("invalid root metadata envelope: %w", err)
	}

	var root RootMetadata
	if err := json.Unmarshal(signed.Signed, &root); err != nil {
		return nil, nil, fmt.Errorf("invalid root metadata payload: %w", err)
	}

	rootRole, ok := root.Roles[RootRoleName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: root metadata has no root role entry", ErrInvalidSignatures)
	}

	if err := VerifyThreshold(&signed, root.Keys, rootRole.KeyIDs, rootRole.Threshold); err != nil {
		return nil, nil, err
	}

	if err := CheckExpiration(root.Expires, commitDate, time.Time{}); err != nil {
		return nil, nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, root.Expires)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid root expiration: %w", err)
	}

	return &RoleTrustState{
		Name:               RootRoleName,
		Keys:               root.Keys,
		KeyIDs:             rootRole.KeyIDs,
		Threshold:          rootRole.Threshold,
		Version:            root.Version,
		Expires:            expiresAt,
		PreviousExpirySeen: expiresAt,
	}, &root, nil
}

// VerifyTimestamp verifies a candidate timestamp.json against the timestamp
// role's current trust state.
func VerifyTimestamp(trusted *RoleTrustState, candidateBytes []byte, commitDate time.Time) (*RoleTrustState, *TimestampMetadata, error) {
	var signed Signed
	if err := json.Unmarshal(candidateBytes, &signed); err != nil {
		return nil, nil, fmt.Errorf("invalid timestamp metadata envelope: %w", err)
	}

	var timestamp TimestampMetadata
	if err := json.Unmarshal(signed.Signed, &timestamp); err != nil {
		return nil, nil, fmt.Errorf("invalid timestamp metadata payload: %w", err)
	}

	if err := VerifyThreshold(&signed, trusted.Keys, trusted.KeyIDs, trusted.Threshold); err != nil {
		return nil, nil, err
	}

	if err := CheckVersionMonotonic(trusted.Version, timestamp.Version); err != nil {
		return nil, nil, err
	}

	if err := CheckExpiration(timestamp.Expires, commitDate, trusted.PreviousExpirySeen); err != nil {
		return nil, nil, err
	}

	expiresAt, _ := time.Parse(time.RFC3339, timestamp.Expires)
	previousExpirySeen := trusted.PreviousExpirySeen
	if expiresAt.After(previousExpirySeen) {
		previousExpirySeen = expiresAt
	}

	next := &RoleTrustState{
		Name:               TimestampRoleName,
		Keys:               trusted.Keys,
		KeyIDs:             trusted.KeyIDs,
		Threshold:          trusted.Threshold,
		Version:            timestamp.Version,
		Expires:            expiresAt,
		PreviousExpirySeen: previousExpirySeen,
	}

	return next, &timestamp, nil
}

// VerifySnapshot verifies a candidate snapshot.json against the snapshot
// role's current trust state, and against the version timestamp recorded
// for it.
func VerifySnapshot(trusted *RoleTrustState, candidateBytes []byte, commitDate time.Time, timestamp *TimestampMetadata, previousSnapshot *SnapshotMetadata) (*RoleTrustState, *SnapshotMetadata, error) {
	var signed Signed
	if err := json.Unmarshal(candidateBytes, &signed); err != nil {
		return nil, nil, fmt.Errorf("invalid snapshot metadata envelope: %w", err)
	}

	var snapshot SnapshotMetadata
	if err := json.Unmarshal(signed.Signed, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("invalid snapshot metadata payload: %w", err)
	}

	if err := VerifyThreshold(&signed, trusted.Keys, trusted.KeyIDs, trusted.Threshold); err != nil {
		return nil, nil, err
	}

	if err := CheckVersionMonotonic(trusted.Version, snapshot.Version); err != nil {
		return nil, nil, err
	}

	if recorded, ok := timestamp.Meta[SnapshotRoleName]; ok {
		if err := CheckVersionMonotonic(snapshot.Version, recorded.Version); err != nil {
			return nil, nil, fmt.Errorf("snapshot version does not match timestamp's recorded version: %w", err)
		}
		if recorded.Version != snapshot.Version {
			return nil, nil, fmt.Errorf("%w: timestamp recorded snapshot version %d, got %d", ErrRollbackAttempted, recorded.Version, snapshot.Version)
		}
	}

	if previousSnapshot != nil {
		for role, previous := range previousSnapshot.MetaVersion {
			current, ok := snapshot.MetaVersion[role]
			if !ok {
				continue
			}
			if err := CheckVersionMonotonic(previous.Version, current.Version); err != nil {
				return nil, nil, fmt.Errorf("role '%s' recorded in snapshot: %w", role, err)
			}
		}
	}

	if err := CheckExpiration(snapshot.Expires, commitDate, trusted.PreviousExpirySeen); err != nil {
		return nil, nil, err
	}

	expiresAt, _ := time.Parse(time.RFC3339, snapshot.Expires)
	previousExpirySeen := trusted.PreviousExpirySeen
	if expiresAt.After(previousExpirySeen) {
		previousExpirySeen = expiresAt
	}

	next := &RoleTrustState{
		Name:               SnapshotRoleName,
		Keys:               trusted.Keys,
		KeyIDs:             trusted.KeyIDs,
		Threshold:          trusted.Threshold,
		Version:            snapshot.Version,
		Expires:            expiresAt,
		PreviousExpirySeen: previousExpirySeen,
	}

	return next, &snapshot, nil
}

// VerifyTargets verifies a candidate targets.json (or delegated role file)
// against that role's current trust state, optionally skipping the
// signature check when the candidate's bytes are identical to the previous
// commit's (the role was not re-signed, so only the version, snapshot and
// expiration checks run — the teacher's GitUpdater.ensure_not_changed
// optimization).
func VerifyTargets(trusted *RoleTrustState, candidateBytes, previousBytes []byte, commitDate time.Time, snapshot *SnapshotMetadata, roleName string) (*RoleTrustState, *TargetsMetadata, error) {
	var signed Signed
	if err := json.Unmarshal(candidateBytes, &signed); err != nil {
		return nil, nil, fmt.Errorf("invalid targets metadata envelope: %w", err)
	}

	var targets TargetsMetadata
	if err := json.Unmarshal(signed.Signed, &targets); err != nil {
		return nil, nil, fmt.Errorf("invalid targets metadata payload: %w", err)
	}

	unchanged := previousBytes != nil && string(previousBytes) == string(candidateBytes)

	if !unchanged {
		if err := VerifyThreshold(&signed, trusted.Keys, trusted.KeyIDs, trusted.Threshold); err != nil {
			return nil, nil, err
		}
	}

	if err := CheckVersionMonotonic(trusted.Version, targets.Version); err != nil {
		return nil, nil, err
	}

	if snapshot != nil {
		if recorded, ok := snapshot.MetaVersion[roleName]; ok && recorded.Version != targets.Version {
			return nil, nil, fmt.Errorf("%w: snapshot recorded %s version %d, got %d", ErrRollbackAttempted, roleName, recorded.Version, targets.Version)
		}
	}

	if err := CheckExpiration(targets.Expires, commitDate, trusted.PreviousExpirySeen); err != nil {
		return nil, nil, err
	}

	expiresAt, _ := time.Parse(time.RFC3339, targets.Expires)
	previousExpirySeen := trusted.PreviousExpirySeen
	if expiresAt.After(previousExpirySeen) {
		previousExpirySeen = expiresAt
	}

	var delegations []Delegation
	delegatedKeys := trusted.Keys
	if targets.Delegations != nil {
		delegations = targets.Delegations.Roles
		if len(targets.Delegations.Keys) > 0 {
			delegatedKeys = targets.Delegations.Keys
		}
	}

	next := &RoleTrustState{
		Name:               roleName,
		Keys:               delegatedKeys,
		KeyIDs:             trusted.KeyIDs,
		Threshold:          trusted.Threshold,
		Version:            targets.Version,
		Expires:            expiresAt,
		PreviousExpirySeen: previousExpirySeen,
		Delegations:        delegations,
	}

	return next, &targets, nil
}
