package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stockslurp/stockslurp/internal/testutil"
	"golang.org/x/crypto/nacl/box"
)

// SetupTestStore starts embedded etcd and returns a Store with a cluster key
// already installed, skipping the approval flow.
func SetupTestStore(t *testing.T) *Store {
	t.Helper()

	cli, cleanup := testutil.StartEmbeddedEtcd(t)
	t.Cleanup(cleanup)

	tempDir, cleanup2 := testutil.SetupTempDir(t)
	t.Cleanup(cleanup2)

	keyPath := filepath.Join(tempDir, "test_node_key")
	store, err := NewStore(cli, keyPath)
	if err != nil {
		t.Fatalf("Failed to create Store: %v", err)
	}
	// Simulate admin approval for bootstrap (direct cluster key approval)
	var clusterKey [32]byte
	_, _ = rand.Read(clusterKey[:])
	sealed, _ := box.SealAnonymous(nil, clusterKey[:], &store.keys.Public, rand.Reader)
	_, err = cli.Put(context.TODO(), store.Prefix()+"/secrets/keys/"+store.nodeID, base64.StdEncoding.EncodeToString(sealed))
	if err != nil {
		t.Fatalf("Failed to put cluster key: %v", err)
	}
	store.clusterK = clusterKey
	return store
}
