package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/pkg/client"
)

func createListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := newClient().ListDomains(cmd.Context(), all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, domains)
			}
			if len(domains) == 0 {
				fmt.Fprintln(out, "No domains found")
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "NAME\tSTATUS\tPLAN\tOWNER\tEXPIRES\tPUBLISHED")
			for _, d := range domains {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.Name, d.Status, d.Plan, truncateAddress(d.OwnerAddress), formatDate(d.ExpiresAt), yesNo(d.IsPublished))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include deleted domains")
	return cmd
}

func createInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a domain and its transfer history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newClient().GetDomain(cmd.Context(), args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("domain %s is not registered", args[0])
				}
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, d)
			}
			printDomain(out, d)
			return nil
		},
	}
}

func printDomain(out io.Writer, d *client.Domain) {
	fmt.Fprintf(out, "Domain:     %s\n", d.Name)
	fmt.Fprintf(out, "Status:     %s\n", d.Status)
	fmt.Fprintf(out, "Plan:       %s\n", d.Plan)
	fmt.Fprintf(out, "Owner:      %s\n", d.OwnerAddress)
	fmt.Fprintf(out, "NFT:        %s\n", d.NftID)
	fmt.Fprintf(out, "IPFS:       %s\n", d.IPFSHash)
	if d.GatewayURL != "" {
		fmt.Fprintf(out, "Gateway:    %s\n", d.GatewayURL)
	}
	fmt.Fprintf(out, "Purchased:  %s\n", formatDate(d.PurchaseDate))
	fmt.Fprintf(out, "Expires:    %s\n", formatDate(d.ExpiresAt))
	fmt.Fprintf(out, "Published:  %s\n", yesNo(d.IsPublished))

	if len(d.TransferHistory) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Transfers:")
	w := newTable(out)
	for _, t := range d.TransferHistory {
		fmt.Fprintf(w, "  %s\t%s -> %s\t%s\n",
			formatDate(timeFromMillis(t.Timestamp)), truncateAddress(t.FromAddress), truncateAddress(t.ToAddress), truncateAddress(t.TransactionHash))
	}
	w.Flush()
}

func createRegisterCmd() *cobra.Command {
	var (
		plan, owner, details, mode string
		years                      int
		addOns                     []string
	)

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a domain",
		Long: `Register a domain. Plan, duration, add-ons and owner default to decentradns.toml.

A name whose record was deleted must be registered with --mode restore.

EXAMPLES:
  decentradns register my-site.sui
  decentradns register my-site.sui --plan Premium --years 3 --add-on ssl --add-on privacy
  decentradns register my-site.sui --details '{"email":"me@example.com"}'
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.RegisterRequest{
				Name:          args[0],
				Plan:          plan,
				DurationYears: years,
				AddOns:        addOns,
				OwnerAddress:  owner,
				Mode:          mode,
			}
			applyProjectDefaults(&req, loadProjectConfigSilent())

			if details != "" {
				raw, err := readDetails(details)
				if err != nil {
					return err
				}
				req.UserDetails = raw
			}

			res, err := newClient().Register(cmd.Context(), req)
			if err != nil {
				if client.IsConflict(err) {
					return fmt.Errorf("%s is already registered: %w", args[0], err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "Registered %s (%s plan, %d year(s))\n", res.Domain.Name, res.Domain.Plan, res.Quote.DurationYears)
			fmt.Fprintf(out, "  NFT:   %s\n", res.Domain.NftID)
			fmt.Fprintf(out, "  IPFS:  %s\n", res.Domain.IPFSHash)
			fmt.Fprintf(out, "  Total: %s\n", formatSUI(res.Quote.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "", "plan: Basic, Standard or Premium")
	cmd.Flags().IntVar(&years, "years", 0, "registration period: 1, 2, 3 or 5")
	cmd.Flags().StringArrayVar(&addOns, "add-on", nil, "add-on id (privacy, ssl, backup, analytics); repeatable")
	cmd.Flags().StringVar(&owner, "owner", "", "owner address")
	cmd.Flags().StringVar(&details, "details", "", "user details as JSON or @file")
	cmd.Flags().StringVar(&mode, "mode", "", "strict (default), upsert or restore")

	return cmd
}

func applyProjectDefaults(req *client.RegisterRequest, cfg *ProjectConfig) {
	if cfg == nil {
		return
	}
	if req.Plan == "" {
		req.Plan = cfg.Plan
	}
	if req.DurationYears == 0 {
		req.DurationYears = cfg.Years
	}
	if len(req.AddOns) == 0 {
		req.AddOns = cfg.AddOns
	}
	if req.OwnerAddress == "" {
		req.OwnerAddress = cfg.OwnerAddress
	}
}

// readDetails accepts inline JSON or @path.
func readDetails(v string) (json.RawMessage, error) {
	data := []byte(v)
	if v[0] == '@' {
		var err error
		if data, err = os.ReadFile(v[1:]); err != nil {
			return nil, fmt.Errorf("reading details: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, errors.New("details must be valid JSON")
	}
	return json.RawMessage(data), nil
}

func createTransferCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "transfer <name>",
		Short: "Transfer a domain to another address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := newClient().Transfer(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, tr)
			}
			fmt.Fprintf(out, "Transferred %s to %s\n", args[0], tr.ToAddress)
			fmt.Fprintf(out, "  Transaction: %s\n", tr.TransactionHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient Sui address (required)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func createDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a domain (it stays listed with --all)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteDomain(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func createPublishCmd(publish bool) *cobra.Command {
	use, short := "publish <name>", "Publish a domain's website"
	if !publish {
		use, short = "unpublish <name>", "Take a domain's website offline"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().SetPublished(cmd.Context(), args[0], publish); err != nil {
				return err
			}
			state := "published"
			if !publish {
				state = "unpublished"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], state)
			return nil
		},
	}
}

func createCodeCmd() *cobra.Command {
	var htmlFile, cssFile, jsFile string

	cmd := &cobra.Command{
		Use:   "code <name>",
		Short: "Upload website code for a domain",
		Long: `Replace the HTML, CSS or JS of a domain's website. Omitted parts are kept.

EXAMPLES:
  decentradns code my-site.sui --html index.html --css style.css
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update client.CodeUpdate
			var err error
			if update.HTML, err = readOptionalFile(htmlFile); err != nil {
				return err
			}
			if update.CSS, err = readOptionalFile(cssFile); err != nil {
				return err
			}
			if update.JS, err = readOptionalFile(jsFile); err != nil {
				return err
			}
			if update.HTML == nil && update.CSS == nil && update.JS == nil {
				return errors.New("nothing to upload: pass --html, --css or --js")
			}

			if err := newClient().UpdateCode(cmd.Context(), args[0], update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated website code for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlFile, "html", "", "HTML file")
	cmd.Flags().StringVar(&cssFile, "css", "", "CSS file")
	cmd.Flags().StringVar(&jsFile, "js", "", "JavaScript file")
	return cmd
}

func readOptionalFile(path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s := string(data)
	return &s, nil
}
