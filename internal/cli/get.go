package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"relatics.dev/relatics/pkg/relatics"
)

// newGetCmd creates the get command.
func newGetCmd() *cobra.Command {
	var (
		params      []string
		raw         bool
		downloadDir string
	)

	cmd := &cobra.Command{
		Use:   "get <operation>",
		Short: `Retrieve results from a "Server for providing data"`,
		Long: `Retrieve results from a "Server for providing data".

Examples:
  relatics get getActies --company acme --workspace ws-123 --entry-code CODE
  relatics get getActies --param status=open --param assignee=jdoe
  relatics get getDocuments --download-dir ./documents`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			splog, err := newSplog(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = splog.Close() }()

			client, err := newClient(cfg, splog)
			if err != nil {
				return err
			}

			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			operation := args[0]
			result, err := client.GetResult(cmd.Context(), operation, relatics.GetResultOptions{
				Parameters:     parameters,
				Authentication: authentication(cfg),
			})
			if err != nil {
				return err
			}

			if raw {
				splog.Page(result.XML())
			} else {
				splog.Page(result.String())
			}

			if downloadDir != "" && len(result.Documents) > 0 {
				if err := writeDocuments(downloadDir, result.Documents); err != nil {
					return err
				}
				splog.Info("Wrote %d document(s) to %s", len(result.Documents), downloadDir)
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "operation parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw result XML")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "write received documents to this directory")

	return cmd
}

// parseParams converts repeated key=value flags into a parameter map.
func parseParams(params []string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}

	parameters := make(map[string]string, len(params))
	for _, param := range params {
		key, value, found := strings.Cut(param, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", param)
		}
		parameters[key] = value
	}
	return parameters, nil
}

// writeDocuments writes received documents to a directory, creating it when
// needed.
func writeDocuments(dir string, documents map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	for name, contents := range documents {
		path := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(path, contents, 0o600); err != nil {
			return fmt.Errorf("failed to write document %s: %w", name, err)
		}
	}
	return nil
}
