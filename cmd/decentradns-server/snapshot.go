package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/facebookgo/atomicfile"
	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/internal/registry"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the domain records and history",
	}
	cmd.AddCommand(newSnapshotExportCmd())
	cmd.AddCommand(newSnapshotImportCmd())
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot to a file or stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backend, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			snap, err := store.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}

			if output == "" || output == "-" {
				return writeSnapshot(cmd.OutOrStdout(), snap)
			}

			f, err := atomicfile.New(output, 0600)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := writeSnapshot(f, snap); err != nil {
				f.Abort()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d domains and %d history entries to %s\n",
				len(snap.Domains), len(snap.History), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the store contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("Replace all records with %d domains and %d history entries from %s?",
				len(snap.Domains), len(snap.History), args[0])
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), msg, yes)
			if err != nil || !ok {
				return err
			}

			store, backend, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := store.Import(cmd.Context(), snap); err != nil {
				return fmt.Errorf("importing: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Snapshot imported")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func writeSnapshot(w io.Writer, snap *registry.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string) (*registry.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap registry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if err := registry.CheckSnapshotVersion(snap.FormatVersion); err != nil {
		return nil, err
	}
	return &snap, nil
}
