package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/report"
	"github.com/Outburn-IL/fhir-validator/internal/tui"
)

var viewPlain bool

var viewCmd = &cobra.Command{
	Use:   "view <report>",
	Short: "View a saved validation report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		r, err := report.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if viewPlain || !isTerminal(cmd.OutOrStdout()) {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.Run(r, path)
	},
}

func init() {
	viewCmd.Flags().BoolVar(&viewPlain, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
