package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/pkg/client"
)

func createResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a domain through the simulated resolver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().Resolve(cmd.Context(), args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("%s does not resolve", args[0])
				}
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, res)
			}

			fmt.Fprintf(out, "%s (owner %s, %dms", res.Domain, truncateAddress(res.Owner), res.ResolveTimeMs)
			if res.Cached {
				fmt.Fprint(out, ", cached")
			}
			fmt.Fprintln(out, ")")
			w := newTable(out)
			for _, r := range res.Records {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%d\n", r.Type, r.Name, r.Value, r.TTL)
			}
			return w.Flush()
		},
	}
}

func createQuoteCmd() *cobra.Command {
	var req client.QuoteRequest

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg := loadProjectConfigSilent(); cfg != nil {
				if req.Plan == "" {
					req.Plan = cfg.Plan
				}
				if req.DurationYears == 0 {
					req.DurationYears = cfg.Years
				}
			}

			q, err := newClient().Quote(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, q)
			}
			w := newTable(out)
			fmt.Fprintf(w, "%s plan x %d year(s)\t%s\n", q.Plan, q.DurationYears, formatSUI(q.PlanTotal))
			if q.Discount > 0 {
				fmt.Fprintf(w, "Multi-year discount\t-%s\n", formatSUI(q.Discount))
			}
			if q.AddOnTotal > 0 {
				fmt.Fprintf(w, "Add-ons\t%s\n", formatSUI(q.AddOnTotal))
			}
			fmt.Fprintf(w, "Registration fee\t%s\n", formatSUI(q.RegistrationFee))
			fmt.Fprintf(w, "Gas fee\t%s\n", formatSUI(q.GasFee))
			fmt.Fprintf(w, "Platform fee\t%s\n", formatSUI(q.PlatformFee))
			fmt.Fprintf(w, "Total\t%s\n", formatSUI(q.Total))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&req.Plan, "plan", "", "plan: Basic, Standard or Premium")
	cmd.Flags().IntVar(&req.DurationYears, "years", 0, "registration period: 1, 2, 3 or 5")
	cmd.Flags().StringArrayVar(&req.AddOns, "add-on", nil, "add-on id; repeatable")
	return cmd
}
