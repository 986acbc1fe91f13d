// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package rolecache tracks the Role Trust State for every TUF role across an
// update's commit sequence. It is instantiated once per update by the
// Orchestrator and threaded explicitly from commit to commit; there is no
// process-global cache, unlike the teacher's own repositoriesdb-style cache.
package rolecache

import (
	"log/slog"

	"github.com/gitauth/gitauth/internal/vcstuf"
)

// Cache holds the current trust state for every role seen so far in one
// update.
type Cache struct {
	roles map[string]*vcstuf.RoleTrustState
}

// New returns an empty cache, ready to be seeded from a shipped or
// previously-trusted root.
func New() *Cache {
	return &Cache{roles: map[string]*vcstuf.RoleTrustState{}}
}

// Get returns the current trust state for roleName, and whether it has been
// seen before.
func (c *Cache) Get(roleName string) (*vcstuf.RoleTrustState, bool) {
	state, ok := c.roles[roleName]
	return state, ok
}

// Set records state as the current trust state for its role.
func (c *Cache) Set(state *vcstuf.RoleTrustState) {
	if state == nil {
		return
	}

	slog.Debug("Updating role trust state", "role", state.Name, "version", state.Version)
	c.roles[state.Name] = state
}

// Delegated returns the trust state recorded for a delegated role, seeding
// it from its declaring delegation the first time it's encountered.
func (c *Cache) Delegated(parentRole string, delegation vcstuf.Delegation) *vcstuf.RoleTrustState {
	if state, ok := c.roles[delegation.Name]; ok {
		return state
	}

	parent, ok := c.roles[parentRole]
	keys := map[string]*vcstuf.Key{}
	if ok {
		keys = parent.Keys
	}

	state := &vcstuf.RoleTrustState{
		Name:      delegation.Name,
		Keys:      keys,
		KeyIDs:    delegation.KeyIDs,
		Threshold: delegation.Threshold,
	}
	c.roles[delegation.Name] = state
	return state
}

// Clone returns a deep-enough copy of the cache suitable for a nested AR
// dependency validation, which must not mutate the parent's trust state.
func (c *Cache) Clone() *Cache {
	clone := New()
	for name, state := range c.roles {
		copied := *state
		clone.roles[name] = &copied
	}
	return clone
}
