// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package dependency tracks the chain of authentication repositories
// currently being validated, so that a library of nested ARs that loops
// back on itself is rejected instead of recursing forever.
package dependency

import (
	"errors"
	"fmt"

	"github.com/gitauth/gitauth/internal/set"
)

// ErrDependencyCycle is returned when an authentication repository depends,
// directly or transitively, on itself.
var ErrDependencyCycle = errors.New("dependency cycle detected among authentication repositories")

// node identifies one step of the dependency chain: a single AR pinned to a
// single commit. The same URL validated at two different commits is not a
// cycle; revisiting the same (URL, commit) pair is.
type node struct {
	url    string
	commit string
}

func (n node) String() string {
	return n.url + "@" + n.commit
}

// Context carries the visited set for one top-level Clone or Update call. It
// is created once by the Orchestrator and passed down explicitly as nested
// ARs are validated; it is never shared across unrelated operations.
type Context struct {
	visited *set.Set[string]
	chain   []node
}

// NewContext returns an empty dependency context.
func NewContext() *Context {
	return &Context{visited: set.NewSet[string]()}
}

// Enter records that url at commit is about to be validated as part of the
// current chain, returning an error if doing so would close a cycle. The
// returned Context must be used for that nested AR's own validation; it
// carries the extended chain so deeper cycles are caught too.
func (c *Context) Enter(url, commit string) (*Context, error) {
	n := node{url: url, commit: commit}
	key := n.String()

	if c.visited.Has(key) {
		return nil, fmt.Errorf("%w: %s already being validated in chain %v", ErrDependencyCycle, key, c.chain)
	}

	next := &Context{
		visited: set.NewSetFromItems(c.visited.Contents()...),
		chain:   append(append([]node{}, c.chain...), n),
	}
	next.visited.Add(key)

	return next, nil
}

// Chain returns the dependency chain leading to the current context, for use
// in diagnostics.
func (c *Context) Chain() []string {
	chain := make([]string, 0, len(c.chain))
	for _, n := range c.chain {
		chain = append(chain, n.String())
	}
	return chain
}
