package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stockslurp/stockslurp/internal/secrets"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// adminEtcd connects directly to etcd for secrets administration. These
// commands bypass the API on purpose: secret material never transits the
// head node.
func adminEtcd() (*clientv3.Client, error) {
	if len(etcdEndpoints) == 0 {
		return nil, fmt.Errorf("--etcd-endpoints is required for secrets commands")
	}
	return clientv3.New(clientv3.Config{
		Endpoints:   etcdEndpoints,
		DialTimeout: 5 * time.Second,
	})
}

// adminStore builds a Store with the cluster key loaded from --cluster-key-file,
// using a throwaway keychain since admin identity does not matter for
// secret read/write operations.
func adminStore(etcd *clientv3.Client) (*secrets.Store, error) {
	key, err := loadClusterKeyFile()
	if err != nil {
		return nil, err
	}

	store, err := secrets.NewStore(etcd, tempKeychainPath())
	if err != nil {
		return nil, err
	}
	store.SetClusterKey(key)
	return store, nil
}

func loadClusterKeyFile() ([32]byte, error) {
	var key [32]byte
	if keyFile == "" {
		return key, fmt.Errorf("--cluster-key-file is required")
	}
	b64, err := os.ReadFile(keyFile)
	if err != nil {
		return key, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b64)))
	if err != nil {
		return key, fmt.Errorf("invalid cluster key file: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("invalid cluster key length: got %d, want 32", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func secretsGenClusterKeyCmd() *cobra.Command {
	genKeyCmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a new base64-encoded cluster key",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFile, _ := cmd.Flags().GetString("key-file")

			rawKey, err := secrets.GenerateClusterKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}

			encodedKey := base64.StdEncoding.EncodeToString(rawKey[:]) + "\n"

			err = os.WriteFile(outFile, []byte(encodedKey), 0o600)
			if err != nil {
				return fmt.Errorf("failed to write key file: %w", err)
			}

			fmt.Printf("Cluster key written to %s\n", outFile)
			return nil
		},
	}

	genKeyCmd.Flags().String("key-file", "cluster.key", "Base64 cluster key file")
	_ = genKeyCmd.MarkFlagRequired("key-file")

	return genKeyCmd
}

func secretsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List node registrations awaiting approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := secrets.NewStore(etcd, tempKeychainPath())
			if err != nil {
				return err
			}
			nodes, err := secrets.ListPendingRegistrations(context.Background(), etcd, store.Prefix())
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Println("No pending nodes")
				return nil
			}
			for _, n := range nodes {
				fmt.Printf("Pending node: %s\n", n)
			}
			return nil
		},
	}
}

func secretsApprovalCmd() *cobra.Command {
	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a pending node registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, _ := cmd.Flags().GetString("node-id")

			key, err := loadClusterKeyFile()
			if err != nil {
				return err
			}

			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := secrets.NewStore(etcd, tempKeychainPath())
			if err != nil {
				return err
			}
			if err := secrets.ApproveNode(context.Background(), etcd, nodeID, store.Prefix(), key); err != nil {
				return err
			}
			fmt.Printf("Node %s approved\n", nodeID)
			return nil
		},
	}

	approveCmd.Flags().String("node-id", "", "Node ID to approve")
	_ = approveCmd.MarkFlagRequired("node-id")

	return approveCmd
}

func secretsListCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := adminStore(etcd)
			if err != nil {
				return err
			}
			keys, err := store.List(context.Background(), prefix)
			if err != nil {
				return err
			}
			outResult(keys, printSecretsTable)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix filter")
	return cmd
}

func secretsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <key>",
		Short: "Add or update a secret (reads value from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}

			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := adminStore(etcd)
			if err != nil {
				return err
			}
			if err := store.Set(context.Background(), args[0], val); err != nil {
				return err
			}
			fmt.Printf("Secret %q set\n", args[0])
			return nil
		},
	}
}

func secretsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := adminStore(etcd)
			if err != nil {
				return err
			}
			if err := store.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Secret %q deleted\n", args[0])
			return nil
		},
	}
}

func secretsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a secret value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			etcd, err := adminEtcd()
			if err != nil {
				return err
			}
			defer etcd.Close()

			store, err := adminStore(etcd)
			if err != nil {
				return err
			}
			val, err := store.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			os.Stdout.Write(val)
			return nil
		},
	}
}

func tempKeychainPath() string {
	tmpFile, err := os.CreateTemp("", "stockslurpctl-keychain-*.bin")
	if err != nil {
		return "stockslurpctl-keychain.bin"
	}
	p := tmpFile.Name()
	tmpFile.Close()
	os.Remove(p)
	return p
}
