package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/pkg/client"
)

func createHistoryCmd() *cobra.Command {
	var q client.HistoryQuery

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := newClient().History(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, hist)
			}
			printHistory(out, hist)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q.Query, "search", "s", "", "filter by domain name substring")
	cmd.Flags().StringVar(&q.Action, "action", "", "filter by action (registered, transferred, deleted, dns_updated, renewed)")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "maximum entries")

	cmd.AddCommand(createHistoryExportCmd())
	cmd.AddCommand(createHistoryClearCmd())
	return cmd
}

func printHistory(out io.Writer, hist []client.HistoryRecord) {
	if len(hist) == 0 {
		fmt.Fprintln(out, "No activity")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "TIME\tACTION\tDOMAIN\tUSER")
	for _, h := range hist {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			h.Time().Local().Format("2006-01-02 15:04"), h.Action, h.DomainName, truncateAddress(h.UserAddress))
	}
	w.Flush()
}

func createHistoryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().ExportHistory(cmd.Context(), client.HistoryQuery{})
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("dns-history-%s.json", time.Now().Format("2006-01-02"))
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: dns-history-<date>.json)")
	return cmd
}

func createHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all activity history on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes every history entry on %s; pass --yes to confirm", getServer())
			}
			if err := newClient().ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func createStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, st)
			}
			fmt.Fprintf(out, "Domains:      %d\n", st.TotalDomains)
			fmt.Fprintf(out, "  active:     %d\n", st.ActiveDomains)
			fmt.Fprintf(out, "  expired:    %d\n", st.ExpiredDomains)
			fmt.Fprintf(out, "  deleted:    %d\n", st.DeletedDomains)
			fmt.Fprintf(out, "Transactions: %d\n", st.TotalTransactions)
			if len(st.RecentActivity) > 0 {
				fmt.Fprintln(out)
				printHistory(out, st.RecentActivity)
			}
			return nil
		},
	}
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
