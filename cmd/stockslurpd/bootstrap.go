package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/stockslurp/stockslurp/cmd/stockslurpd/config"
	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/secrets"
)

func selfBootstrap(ctx context.Context, cl cluster.Cluster, cfg *config.ClusterConfig, logger *log.Logger) error {
	registrationDone := make(chan struct{})
	registrationFailed := make(chan error, 2)

	go func() {
		if err := cl.Secrets().RegisterAndWaitForClusterKey(context.Background()); err != nil {
			registrationFailed <- err
			return
		}
		logger.Println("Self-bootstrap registration complete.")
		close(registrationDone)
	}()

	approved := false
	for i := 0; i < 10; i++ {
		select {
		case err := <-registrationFailed:
			return fmt.Errorf("self-bootstrap registration failed: %v", err)
		case <-registrationDone:
			approved = true
		default:
			pending, err := secrets.ListPendingRegistrations(ctx, cl.Client(), cl.Secrets().Prefix())
			if err != nil {
				logger.Printf("Self-bootstrap: could not query pending registrations: %v", err)
				break
			}
			for _, nodeID := range pending {
				if nodeID == cl.Secrets().NodeId() {
					if err := approveSelf(ctx, cl, cfg.Secrets.ClusterKey); err != nil {
						logger.Fatalf("Self-bootstrap failed: %v", err)
					}
					logger.Println("Self-bootstrap successful")
					approved = true
					break
				}
			}
		}
		if approved {
			break
		}
		time.Sleep(300 * time.Millisecond)
	}

	if !approved {
		return fmt.Errorf("self-bootstrap failed to register after 3s")
	}

	return nil
}

func approveSelf(ctx context.Context, cl cluster.Cluster, clusterKeyB64 string) error {
	var clusterKey [32]byte

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(clusterKeyB64))
	if err != nil {
		return err
	}

	if len(raw) != 32 {
		return fmt.Errorf("invalid cluster key length: got %d, want 32", len(raw))
	}

	copy(clusterKey[:], raw)
	cl.Secrets().SetClusterKey(clusterKey)

	return secrets.ApproveNode(ctx, cl.Client(), cl.Secrets().NodeId(), cl.Secrets().Prefix(), clusterKey)
}
