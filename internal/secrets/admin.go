package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/crypto/nacl/box"
)

// GenerateClusterKey returns a fresh random 32-byte cluster key.
func GenerateClusterKey() ([32]byte, error) {
	var clusterKey [32]byte
	_, err := rand.Read(clusterKey[:])
	return clusterKey, err
}

// GenerateAndStoreClusterKey creates a new random cluster key and stores it in etcd
// under the cluster key path. Only needed for initial cluster bootstrapping.
func GenerateAndStoreClusterKey(ctx context.Context, etcd *clientv3.Client, prefix string) ([32]byte, error) {
	clusterKey, err := GenerateClusterKey()
	if err != nil {
		return clusterKey, err
	}
	b64 := base64.StdEncoding.EncodeToString(clusterKey[:])
	_, err = etcd.Put(ctx, prefix+"/secrets/cluster_key", b64)
	return clusterKey, err
}

// LoadClusterKey fetches the cluster key stored during bootstrap. Intended for
// admin tooling running with direct etcd access, not for workers.
func LoadClusterKey(ctx context.Context, etcd *clientv3.Client, prefix string) ([32]byte, error) {
	var clusterKey [32]byte
	resp, err := etcd.Get(ctx, prefix+"/secrets/cluster_key")
	if err != nil {
		return clusterKey, err
	}
	if len(resp.Kvs) == 0 {
		return clusterKey, errors.New("cluster key not found")
	}
	raw, err := base64.StdEncoding.DecodeString(string(resp.Kvs[0].Value))
	if err != nil || len(raw) != 32 {
		return clusterKey, errors.New("invalid cluster key data")
	}
	copy(clusterKey[:], raw)
	return clusterKey, nil
}

// ListPendingRegistrations returns the node IDs currently awaiting approval.
func ListPendingRegistrations(ctx context.Context, etcd *clientv3.Client, prefix string) ([]string, error) {
	resp, err := etcd.Get(ctx, prefix+"/registration/pending/", clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ids = append(ids, strings.TrimPrefix(string(kv.Key), prefix+"/registration/pending/"))
	}
	return ids, nil
}

// ApproveNode is used by an administrator to approve a pending node registration.
// Encrypts the cluster key with the node's public key and stores it in etcd.
// Removes the pending registration after approval.
func ApproveNode(ctx context.Context, etcd *clientv3.Client, nodeID string, prefix string, clusterKey [32]byte) error {
	resp, err := etcd.Get(ctx, prefix+"/registration/pending/"+nodeID)
	if err != nil || len(resp.Kvs) == 0 {
		return errors.New("pending registration not found")
	}
	pubBytes, _ := base64.StdEncoding.DecodeString(string(resp.Kvs[0].Value))
	if len(pubBytes) != 32 {
		return errors.New("invalid pubkey")
	}
	var pubKey [32]byte
	copy(pubKey[:], pubBytes)
	sealed, err := box.SealAnonymous(nil, clusterKey[:], &pubKey, rand.Reader)
	if err != nil {
		return err
	}
	_, err = etcd.Put(ctx, prefix+"/secrets/keys/"+nodeID, base64.StdEncoding.EncodeToString(sealed))
	_, _ = etcd.Delete(ctx, prefix+"/registration/pending/"+nodeID)
	return err
}
