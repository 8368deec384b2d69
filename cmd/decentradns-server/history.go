package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the activity history",
	}
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Delete the entire activity history?", yes)
			if err != nil || !ok {
				return err
			}

			store, backend, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := store.ClearHistory(cmd.Context()); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

var errNotInteractive = errors.New("refusing to run without a terminal; pass --yes to confirm")

// confirm asks a yes/no question. Without a terminal on stdin the caller
// must pass --yes.
func confirm(in io.Reader, out io.Writer, question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return false, errNotInteractive
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(out, "Aborted")
		return false, nil
	}
	return true, nil
}
