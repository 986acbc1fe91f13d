// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/gitauth/gitauth/internal/gitinterface"
	"github.com/gitauth/gitauth/internal/vcstuf"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
	"github.com/stretchr/testify/require"
)

// fixtureSigner is one Ed25519 keypair shared across every role in a test
// fixture, for brevity; nothing in these tests exercises differing keys per
// role (that is covered directly in internal/vcstuf).
type fixtureSigner struct {
	key     *vcstuf.Key
	private ed25519.PrivateKey
}

func newFixtureSigner(t *testing.T) *fixtureSigner {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	key, err := signerverifier.NewKey(pub)
	require.NoError(t, err)

	return &fixtureSigner{key: key, private: priv}
}

func signPayload(t *testing.T, signer *fixtureSigner, payload map[string]any) []byte {
	t.Helper()

	canonical, err := cjson.EncodeCanonical(payload)
	require.NoError(t, err)

	sigBytes := ed25519.Sign(signer.private, canonical)

	signed := &vcstuf.Signed{
		Signed: json.RawMessage(canonical),
		Signatures: []vcstuf.Signature{
			{KeyID: signer.key.KeyID, Sig: hex.EncodeToString(sigBytes)},
		},
	}

	b, err := json.Marshal(signed)
	require.NoError(t, err)
	return b
}

// singleCommitFixture builds a one-commit authentication repository signed
// entirely by signer, with an empty targets role plus whatever extra target
// files extraTargets names (path -> raw file contents), and returns the
// repository and the commit ID.
func singleCommitFixture(t *testing.T, signer *fixtureSigner, extraTargets map[string][]byte) (*gitinterface.Repository, gitinterface.Hash) {
	t.Helper()
	return singleCommitFixtureExpiring(t, signer, extraTargets, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
}

// singleCommitFixtureExpiring is singleCommitFixture with an explicit
// expiration on every role, for tests that need metadata already expired
// relative to the fixed test commit clock.
func singleCommitFixtureExpiring(t *testing.T, signer *fixtureSigner, extraTargets map[string][]byte, expiresAt time.Time) (*gitinterface.Repository, gitinterface.Hash) {
	t.Helper()

	tmpDir := t.TempDir()
	repo := gitinterface.CreateTestGitRepository(t, tmpDir, false)

	return singleCommitFixtureIntoExpiring(t, repo, signer, extraTargets, expiresAt)
}

// singleCommitFixtureInto writes one fully signed authentication repository
// commit into an already-created repo, for tests that need control over how
// that repo was constructed (e.g. bare, or destined to be served as a remote).
func singleCommitFixtureInto(t *testing.T, repo *gitinterface.Repository, signer *fixtureSigner, extraTargets map[string][]byte) (*gitinterface.Repository, gitinterface.Hash) {
	t.Helper()
	return singleCommitFixtureIntoExpiring(t, repo, signer, extraTargets, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
}

func singleCommitFixtureIntoExpiring(t *testing.T, repo *gitinterface.Repository, signer *fixtureSigner, extraTargets map[string][]byte, expiresAt time.Time) (*gitinterface.Repository, gitinterface.Hash) {
	t.Helper()

	expires := expiresAt.Format(time.RFC3339)

	rootBytes := signPayload(t, signer, map[string]any{
		"type":    "root",
		"version": 1,
		"expires": expires,
		"keys":    map[string]any{signer.key.KeyID: signer.key},
		"roles": map[string]any{
			vcstuf.RootRoleName:      vcstuf.Role{KeyIDs: []string{signer.key.KeyID}, Threshold: 1},
			vcstuf.TargetsRoleName:   vcstuf.Role{KeyIDs: []string{signer.key.KeyID}, Threshold: 1},
			vcstuf.SnapshotRoleName:  vcstuf.Role{KeyIDs: []string{signer.key.KeyID}, Threshold: 1},
			vcstuf.TimestampRoleName: vcstuf.Role{KeyIDs: []string{signer.key.KeyID}, Threshold: 1},
		},
	})

	targetsEntries := map[string]any{}
	for name := range extraTargets {
		targetsEntries[name] = map[string]any{}
	}

	targetsBytes := signPayload(t, signer, map[string]any{
		"type":    "targets",
		"version": 1,
		"expires": expires,
		"targets": targetsEntries,
	})

	snapshotBytes := signPayload(t, signer, map[string]any{
		"type":    "snapshot",
		"version": 1,
		"expires": expires,
		"meta": map[string]any{
			vcstuf.TargetsRoleName: vcstuf.MetadataInfo{Version: 1},
		},
	})

	timestampBytes := signPayload(t, signer, map[string]any{
		"type":    "timestamp",
		"version": 1,
		"expires": expires,
		"meta": map[string]any{
			vcstuf.SnapshotRoleName: vcstuf.MetadataInfo{Version: 1},
		},
	})

	entries := []gitinterface.TreeEntry{}
	writeBlob := func(treePath string, contents []byte) {
		blobID, err := repo.WriteBlob(contents)
		require.NoError(t, err)
		entries = append(entries, gitinterface.NewEntryBlob(treePath, blobID))
	}

	writeBlob("metadata/root.json", rootBytes)
	writeBlob("metadata/targets.json", targetsBytes)
	writeBlob("metadata/snapshot.json", snapshotBytes)
	writeBlob("metadata/timestamp.json", timestampBytes)
	for name, contents := range extraTargets {
		writeBlob("targets/"+name, contents)
	}

	treeBuilder := gitinterface.NewTreeBuilder(repo)
	treeID, err := treeBuilder.WriteTreeFromEntries(entries)
	require.NoError(t, err)

	commitID, err := repo.Commit(treeID, gitinterface.BranchReferenceName(arBranch), "Initial metadata", false)
	require.NoError(t, err)

	return repo, commitID
}

func targetEntryBytes(t *testing.T, commit gitinterface.Hash, branch string) []byte {
	t.Helper()
	b, err := json.Marshal(TargetEntry{Commit: commit.String(), Branch: branch})
	require.NoError(t, err)
	return b
}

func manifestBytes(t *testing.T, repositories map[string]RepositoryDescriptor) []byte {
	t.Helper()
	b, err := json.Marshal(RepositoriesManifest{Repositories: repositories})
	require.NoError(t, err)
	return b
}
