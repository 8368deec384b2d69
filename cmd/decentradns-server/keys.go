package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/internal/auth"
	"github.com/pendergraft/decentradns/internal/config"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRevokeCmd())

	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var name, outputFile string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long: `Create an API key for the write endpoints (register, transfer, delete, ...).

The key is written to a 0600 file unless --quiet is given.
It is only shown once and cannot be retrieved later.

EXAMPLES:
  decentradns-server keys create --name ops
  decentradns-server keys create --name ci --quiet | gh secret set DECENTRADNS_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, closeFn, err := openKeyStore()
			if err != nil {
				return err
			}
			defer closeFn()

			key, err := keys.CreateAPIKey(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("creating API key: %w", err)
			}

			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			}

			if outputFile == "" {
				outputFile = fmt.Sprintf("./decentradns-key-%s.txt", name)
			}
			if dir := filepath.Dir(outputFile); dir != "." {
				if err := os.MkdirAll(dir, 0700); err != nil {
					return fmt.Errorf("creating directory: %w", err)
				}
			}
			if err := os.WriteFile(outputFile, []byte(key+"\n"), 0600); err != nil {
				return fmt.Errorf("writing key to file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API key created: %s\n", name)
			fmt.Fprintf(out, "  Written to: %s (mode 0600)\n\n", outputFile)
			fmt.Fprintln(out, "  Usage:")
			fmt.Fprintf(out, "    export DECENTRADNS_API_KEY=$(cat %s)\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name/label for the key (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write key to file (default: ./decentradns-key-{name}.txt)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the key (for piping)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, closeFn, err := openKeyStore()
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := keys.ListAPIKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing API keys: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No API keys found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
			for _, k := range list {
				lastUsed := "never"
				if k.LastUsedAt != nil {
					lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.ID[:8], k.Name, k.CreatedAt.Format("2006-01-02 15:04"), lastUsed)
			}
			return w.Flush()
		},
	}
}

func newKeysRevokeCmd() *cobra.Command {
	var keyID string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key",
		Long: `Revoke an API key. The ID may be the 8 character prefix shown by 'keys list'.

EXAMPLES:
  decentradns-server keys revoke --id 3f2a9c1e
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, closeFn, err := openKeyStore()
			if err != nil {
				return err
			}
			defer closeFn()

			fullID, err := resolveKeyID(cmd.Context(), keys, keyID)
			if err != nil {
				return err
			}
			if err := keys.RevokeAPIKey(cmd.Context(), fullID); err != nil {
				return fmt.Errorf("revoking API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key revoked: %s\n", fullID)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyID, "id", "", "key ID or prefix to revoke (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func resolveKeyID(ctx context.Context, keys *auth.KeyStore, id string) (string, error) {
	list, err := keys.ListAPIKeys(ctx)
	if err != nil {
		return "", fmt.Errorf("listing API keys: %w", err)
	}
	var match string
	for _, k := range list {
		if k.ID == id {
			return k.ID, nil
		}
		if strings.HasPrefix(k.ID, id) {
			if match != "" {
				return "", fmt.Errorf("key prefix %q is ambiguous", id)
			}
			match = k.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("key not found: %s", id)
	}
	return match, nil
}

func openKeyStore() (*auth.KeyStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	backend, err := openBackend(context.Background(), cfg, quietLogger())
	if err != nil {
		return nil, nil, err
	}
	return auth.NewKeyStore(backend), func() { backend.Close() }, nil
}
