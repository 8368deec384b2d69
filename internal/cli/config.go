package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const projectConfigFile = "decentradns.toml"

// ProjectConfig is the project-level TOML configuration. Its values are
// defaults for flags that were not given.
type ProjectConfig struct {
	Server       string   `toml:"server"`
	OwnerAddress string   `toml:"owner_address,omitempty"`
	Plan         string   `toml:"plan,omitempty"`
	Years        int      `toml:"years,omitempty"`
	AddOns       []string `toml:"add_ons,omitempty"`
}

// GlobalConfig is stored in ~/.decentradns/config.yaml
type GlobalConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL, owner string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create decentradns.toml in the current directory",
		Long: `Create a decentradns.toml file holding the server URL and registration defaults.

EXAMPLES:
  decentradns config init
  decentradns config init --server https://dns.example.com --owner 0xabc...
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), projectConfigFile, serverURL, owner, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "server URL")
	cmd.Flags().StringVar(&owner, "owner", "", "default owner address for registrations")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigInit(out io.Writer, path, serverURL, owner string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := ProjectConfig{
		Server:       serverURL,
		OwnerAddress: owner,
		Plan:         "Standard",
		Years:        1,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# DecentraDNS project configuration")
	fmt.Fprintln(f)
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintf(out, "  Server: %s\n", serverURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Run 'decentradns auth login' to store an API key")
	fmt.Fprintln(out, "  2. Run 'decentradns register my-site.sui' to register a domain")
	return nil
}

func runConfigShow(out io.Writer) error {
	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "1. Command line flags: --server, --api-key, --config")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "2. Environment variables")
	fmt.Fprintf(out, "   DECENTRADNS_SERVER=%s\n", orNotSet(os.Getenv("DECENTRADNS_SERVER")))
	if key := os.Getenv("DECENTRADNS_API_KEY"); key != "" {
		fmt.Fprintf(out, "   DECENTRADNS_API_KEY=%s\n", maskAPIKey(key))
	} else {
		fmt.Fprintln(out, "   DECENTRADNS_API_KEY=(not set)")
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "3. Project config (%s)\n", projectConfigFile)
	cfg, path, err := loadProjectConfig()
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	default:
		fmt.Fprintf(out, "   Loaded from: %s\n", path)
		fmt.Fprintf(out, "   server: %s\n", orNotSet(cfg.Server))
		fmt.Fprintf(out, "   owner_address: %s\n", orNotSet(cfg.OwnerAddress))
		fmt.Fprintf(out, "   plan: %s, years: %d\n", orNotSet(cfg.Plan), cfg.Years)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "4. Global config (%s)\n", globalConfigPath())
	if g, err := loadGlobalConfig(); err != nil {
		fmt.Fprintln(out, "   (not found)")
	} else {
		fmt.Fprintf(out, "   server: %s\n", orNotSet(g.Server))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Fprintf(out, "   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Fprintln(out, "   API Key: (not set)")
	}
	return nil
}

// loadProjectConfig loads --config or decentradns.toml from the working directory.
func loadProjectConfig() (*ProjectConfig, string, error) {
	path := cfgFile
	if path == "" {
		path = projectConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	var cfg ProjectConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, path, fmt.Errorf("parsing TOML: %w", err)
	}
	return &cfg, path, nil
}

// loadProjectConfigSilent returns nil for a missing file and warns on parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	cfg, _, err := loadProjectConfig()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		}
		return nil
	}
	return cfg
}

func globalConfigPath() string {
	return filepath.Join(credentialsDir(), "config.yaml")
}

func loadGlobalConfig() (*GlobalConfig, error) {
	data, err := os.ReadFile(globalConfigPath())
	if err != nil {
		return nil, err
	}
	var g GlobalConfig
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", globalConfigPath(), err)
	}
	return &g, nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
