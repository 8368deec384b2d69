// Package cli implements the decentradns command line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/decentradns/pkg/client"
)

const defaultServer = "http://localhost:8080"

var (
	cfgFile    string
	server     string
	apiKey     string
	jsonOutput bool
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "decentradns",
		Short:         "Decentralized domain registry CLI",
		Long:          `decentradns registers, transfers and publishes domains on a DecentraDNS server and inspects its activity history.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: decentradns.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(createListCmd())
	rootCmd.AddCommand(createInfoCmd())
	rootCmd.AddCommand(createRegisterCmd())
	rootCmd.AddCommand(createTransferCmd())
	rootCmd.AddCommand(createDeleteCmd())
	rootCmd.AddCommand(createPublishCmd(true))
	rootCmd.AddCommand(createPublishCmd(false))
	rootCmd.AddCommand(createCodeCmd())
	rootCmd.AddCommand(createHistoryCmd())
	rootCmd.AddCommand(createStatsCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createQuoteCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// getServer returns the server URL from flag, env, project config or global config
func getServer() string {
	if server != "" {
		return server
	}
	if env := os.Getenv("DECENTRADNS_SERVER"); env != "" {
		return env
	}
	if cfg := loadProjectConfigSilent(); cfg != nil && cfg.Server != "" {
		return cfg.Server
	}
	if g, err := loadGlobalConfig(); err == nil && g.Server != "" {
		return g.Server
	}
	return defaultServer
}

// getAPIKey returns the API key from flag, env or the credentials file
func getAPIKey() string {
	if apiKey != "" {
		return apiKey
	}
	if env := os.Getenv("DECENTRADNS_API_KEY"); env != "" {
		return env
	}
	return getCredential(getServer())
}

func newClient() *client.Client {
	return client.New(getServer(), getAPIKey())
}
