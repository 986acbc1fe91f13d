// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gitauth/gitauth/internal/rolecache"
	"github.com/gitauth/gitauth/internal/vcstuf"
)

// MetadataState carries the cross-commit byte-level state the Per-Commit
// Verifier needs but rolecache.Cache does not track: the previous commit's
// raw targets bytes (for the unchanged-since-last-commit skip) and the
// previous snapshot (for its contained-role-version monotonicity check).
// It is owned by the same caller that owns the rolecache.Cache for one
// update and is mutated in place as each commit is accepted.
type MetadataState struct {
	PreviousSnapshot     *vcstuf.SnapshotMetadata
	PreviousTargetsBytes map[string][]byte
}

// NewMetadataState returns an empty MetadataState, appropriate for a first
// clone or for the first commit of an update.
func NewMetadataState() *MetadataState {
	return &MetadataState{PreviousTargetsBytes: map[string][]byte{}}
}

// VerifiedTargets is the result of walking the targets role and its
// delegation tree at a single commit, depth-first in declared order.
type VerifiedTargets struct {
	// Roles holds every verified targets-shaped role, keyed by name
	// ("targets" plus every delegated role name reached).
	Roles map[string]*vcstuf.TargetsMetadata

	// Order lists the role names in the order they were visited.
	Order []string

	// Delegations maps each visited role to the Delegation that
	// introduced it (absent for the top-level "targets" role), so a
	// caller can apply its paths/path_hash_prefixes constraint.
	Delegations map[string]vcstuf.Delegation
}

// AuthoritativeRole returns the name of the delegated (or top-level) role
// that is authoritative for targetPath: the first role, in visit order,
// whose delegation (if any) matches targetPath.
func (v *VerifiedTargets) AuthoritativeRole(targetPath string) (string, bool) {
	for _, role := range v.Order {
		delegation, hasDelegation := v.Delegations[role]
		if !hasDelegation {
			// The top-level targets role is always authoritative absent a
			// narrower delegation.
			if _, ok := v.Roles[role].Targets[targetPath]; ok {
				return role, true
			}
			continue
		}

		if !delegation.MatchesPaths(targetPath) {
			continue
		}

		if _, ok := v.Roles[role].Targets[targetPath]; ok {
			return role, true
		}
	}

	return "", false
}

// VerifyCommit drives one Per-Commit Verifier pass over mirror: the root
// update chain, timestamp, snapshot, and then targets plus every delegated
// role, walked depth-first in the order each parent declares its
// delegations. cache and state are mutated in place to reflect the newly
// accepted metadata, ready for the next commit in the sequence.
func VerifyCommit(cache *rolecache.Cache, state *MetadataState, mirror *vcstuf.GitMirror) (*VerifiedTargets, error) {
	commitDate, err := mirror.EarliestValidExpiration()
	if err != nil {
		return nil, err
	}

	if err := verifyRoot(cache, mirror, commitDate); err != nil {
		return nil, err
	}

	timestamp, err := verifyTimestamp(cache, mirror, commitDate)
	if err != nil {
		return nil, err
	}

	snapshot, err := verifySnapshot(cache, state, mirror, commitDate, timestamp)
	if err != nil {
		return nil, err
	}

	verified := &VerifiedTargets{
		Roles:       map[string]*vcstuf.TargetsMetadata{},
		Delegations: map[string]vcstuf.Delegation{},
	}

	if err := verifyTargetsTree(cache, state, mirror, commitDate, snapshot, vcstuf.TargetsRoleName, nil, verified); err != nil {
		return nil, err
	}

	slog.Debug("Verified commit", "commit", mirror.CommitID().String(), "roles", verified.Order)

	return verified, nil
}

func verifyRoot(cache *rolecache.Cache, mirror *vcstuf.GitMirror, commitDate time.Time) error {
	rootState, ok := cache.Get(vcstuf.RootRoleName)
	if !ok {
		return fmt.Errorf("root trust state was not seeded before verifying commit '%s'", mirror.CommitID())
	}

	rootBytes, err := mirror.GetMetadata(vcstuf.RootRoleName)
	if err != nil {
		return wrapRoleErr(err, mirror, vcstuf.RootRoleName)
	}

	next, err := vcstuf.VerifyRoot(rootState, rootBytes, commitDate)
	if err != nil {
		return wrapRoleErr(err, mirror, vcstuf.RootRoleName)
	}

	cache.Set(next)
	return nil
}

func verifyTimestamp(cache *rolecache.Cache, mirror *vcstuf.GitMirror, commitDate time.Time) (*vcstuf.TimestampMetadata, error) {
	trusted, ok := cache.Get(vcstuf.TimestampRoleName)
	if !ok {
		return nil, fmt.Errorf("timestamp trust state was not seeded before verifying commit '%s'", mirror.CommitID())
	}

	timestampBytes, err := mirror.GetMetadata(vcstuf.TimestampRoleName)
	if err != nil {
		return nil, wrapRoleErr(err, mirror, vcstuf.TimestampRoleName)
	}

	next, timestamp, err := vcstuf.VerifyTimestamp(trusted, timestampBytes, commitDate)
	if err != nil {
		return nil, wrapRoleErr(err, mirror, vcstuf.TimestampRoleName)
	}

	cache.Set(next)
	return timestamp, nil
}

func verifySnapshot(cache *rolecache.Cache, state *MetadataState, mirror *vcstuf.GitMirror, commitDate time.Time, timestamp *vcstuf.TimestampMetadata) (*vcstuf.SnapshotMetadata, error) {
	trusted, ok := cache.Get(vcstuf.SnapshotRoleName)
	if !ok {
		return nil, fmt.Errorf("snapshot trust state was not seeded before verifying commit '%s'", mirror.CommitID())
	}

	snapshotBytes, err := mirror.GetMetadata(vcstuf.SnapshotRoleName)
	if err != nil {
		return nil, wrapRoleErr(err, mirror, vcstuf.SnapshotRoleName)
	}

	next, snapshot, err := vcstuf.VerifySnapshot(trusted, snapshotBytes, commitDate, timestamp, state.PreviousSnapshot)
	if err != nil {
		return nil, wrapRoleErr(err, mirror, vcstuf.SnapshotRoleName)
	}

	cache.Set(next)
	state.PreviousSnapshot = snapshot
	return snapshot, nil
}

// verifyTargetsTree verifies roleName and then recurses depth-first into its
// delegations in declared order, matching §4.5's "walk delegations
// depth-first in the order declared" rule.
func verifyTargetsTree(cache *rolecache.Cache, state *MetadataState, mirror *vcstuf.GitMirror, commitDate time.Time, snapshot *vcstuf.SnapshotMetadata, roleName string, owningDelegation *vcstuf.Delegation, verified *VerifiedTargets) error {
	trusted, ok := cache.Get(roleName)
	if !ok {
		return fmt.Errorf("trust state for role '%s' was not seeded before verifying commit '%s'", roleName, mirror.CommitID())
	}

	roleBytes, err := mirror.GetMetadata(roleName)
	if err != nil {
		return wrapRoleErr(err, mirror, roleName)
	}

	previousBytes := state.PreviousTargetsBytes[roleName]

	next, targets, err := vcstuf.VerifyTargets(trusted, roleBytes, previousBytes, commitDate, snapshot, roleName)
	if err != nil {
		return wrapRoleErr(err, mirror, roleName)
	}

	cache.Set(next)
	state.PreviousTargetsBytes[roleName] = roleBytes

	verified.Roles[roleName] = targets
	verified.Order = append(verified.Order, roleName)
	if owningDelegation != nil {
		verified.Delegations[roleName] = *owningDelegation
	}

	for i := range targets.Delegations.RolesOrEmpty() {
		delegation := targets.Delegations.Roles[i]
		delegatedState := cache.Delegated(roleName, delegation)
		cache.Set(delegatedState)

		if err := verifyTargetsTree(cache, state, mirror, commitDate, snapshot, delegation.Name, &delegation, verified); err != nil {
			return err
		}
	}

	return nil
}

func wrapRoleErr(err error, mirror *vcstuf.GitMirror, role string) error {
	return &UpdateFailed{Kind: err, Commit: mirror.CommitID(), Role: role, Inner: err}
}
