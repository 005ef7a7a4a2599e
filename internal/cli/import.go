package cli

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"relatics.dev/relatics/pkg/relatics"
)

// newImportCmd creates the import command.
func newImportCmd() *cobra.Command {
	var (
		dataFile  string
		documents []string
		fileName  string
		keepZip   bool
	)

	cmd := &cobra.Command{
		Use:   "import <operation>",
		Short: `Send a data file to a "Server for importing data"`,
		Long: `Send a data file to a "Server for importing data".

Supported data files: xlsx, xlsm, xlsb, xls, csv.

Examples:
  relatics import importActies --data acties.xlsx
  relatics import importActies --data acties.csv --documents photo.jpg --documents plan.pdf
  relatics import importActies --data acties.xlsx --file-name weekly_sync --yes`,
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

			if dataFile == "" {
				return fmt.Errorf("no data file supplied (use --data)")
			}

			operation := args[0]

			if !cfg.Yes && isatty.IsTerminal(os.Stdin.Fd()) {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Import %s into workspace %s using operation %s?",
						dataFile, cfg.Workspace, operation),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return fmt.Errorf("canceled")
				}
				if !confirmed {
					splog.Info("Import canceled")
					return nil
				}
			}

			result, err := client.ImportFile(cmd.Context(), operation, dataFile, relatics.ImportOptions{
				Authentication: authentication(cfg),
				Filename:       fileName,
				Documents:      documents,
				KeepZipFile:    keepZip,
			})
			if err != nil {
				return err
			}

			splog.Page(result.String())

			if errorCount := len(result.ErrorMessages()); errorCount > 0 {
				return fmt.Errorf("import reported %d error(s)", errorCount)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "data file to import (xlsx, xlsm, xlsb, xls, csv)")
	cmd.Flags().StringArrayVar(&documents, "documents", nil, "document file to include in the import (repeatable)")
	cmd.Flags().StringVar(&fileName, "file-name", "", "filename reported to Relatics (shows up in the import log)")
	cmd.Flags().BoolVar(&keepZip, "keep-zip", false, "keep the generated zip archive for inspection")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt (also RELATICS_YES or yes: in the config file)")

	return cmd
}
