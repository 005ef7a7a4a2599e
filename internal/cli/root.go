// Package cli implements the relatics command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"relatics.dev/relatics/internal/config"
	"relatics.dev/relatics/internal/output"
	"relatics.dev/relatics/pkg/relatics"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd(commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relatics",
		Short:         "Relatics is a command line client for the Relatics webservices",
		Long:          `Relatics is a command line client for the Relatics webservices: retrieve results from "Servers for providing data" and send data to "Servers for importing data".`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./relatics.yaml, ~/.config/relatics/config.yaml)")
	flags.String("company", "", "company name of the hosted environment (<company>.relaticsonline.com)")
	flags.String("workspace", "", "workspace identification")
	flags.String("entry-code", "", "entry code authentication")
	flags.String("client-id", "", "OAuth2 client id")
	flags.String("client-secret", "", "OAuth2 client secret")
	flags.String("user-agent", "", "override the user agent sent to Relatics")
	flags.String("base-url", "", "override the host URL (testing)")
	flags.String("log-file", "", "write a rotating debug log to this file")
	flags.Bool("no-color", false, "disable colored output")
	_ = flags.MarkHidden("base-url")

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newVersionCmd(commit, date))

	return rootCmd
}

// loadConfig reads the merged configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if cfg.NoColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	return cfg, nil
}

// newSplog creates the command logger, with file logging when configured.
func newSplog(cfg *config.Config) (*output.Splog, error) {
	splog, err := output.NewSplogWithConfig(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return splog, nil
}

// newClient builds a webservice client from the configuration.
func newClient(cfg *config.Config, splog *output.Splog) (*relatics.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []relatics.Option{
		relatics.WithUserAgent(cfg.UserAgent),
		relatics.WithLogger(splog.Logger()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, relatics.WithBaseURL(cfg.BaseURL))
	}

	return relatics.NewClient(cfg.Company, cfg.Workspace, opts...), nil
}

// authentication picks the authentication mode from the configuration:
// client credentials when configured, else the entry code, else anonymous.
func authentication(cfg *config.Config) relatics.Authentication {
	if cfg.ClientID != "" {
		return relatics.NewClientCredential(cfg.ClientID, cfg.ClientSecret)
	}
	if cfg.EntryCode != "" {
		return relatics.EntryCode(cfg.EntryCode)
	}
	return nil
}
