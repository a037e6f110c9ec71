package testutil

import (
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
)

// StartEmbeddedEtcd starts a single-node embedded etcd server and returns a
// connected client plus a cleanup func. Used by tests that need raw etcd
// without the full cluster layer.
func StartEmbeddedEtcd(t *testing.T) (*clientv3.Client, func()) {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()
	cfg.Logger = "zap"
	cfg.LogLevel = "error"

	e, err := embed.StartEtcd(cfg)
	if err != nil {
		t.Fatalf("failed to start embedded etcd: %v", err)
	}

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		e.Close()
		t.Fatal("etcd server did not become ready in time")
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{e.Clients[0].Addr().String()},
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		e.Close()
		t.Fatalf("failed to connect to embedded etcd: %v", err)
	}

	return cli, func() {
		_ = cli.Close()
		e.Close()
	}
}
