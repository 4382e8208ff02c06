package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure fhir-validator (re-run anytime to edit settings)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

// runSetup runs the interactive setup wizard and saves the global config.
func runSetup(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	// Load existing config as defaults if present.
	var existing *config.Config
	if config.GlobalExists() {
		if c, err := config.LoadGlobal(); err == nil {
			existing = c
		}
	}

	c, err := config.RunSetup(existing, cmd.InOrStdin(), out)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.SaveGlobal(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	dir, _ := config.ConfigDir()
	fmt.Fprintf(out, "  ✓ Config saved to %s.\n", dir)
	fmt.Fprintln(out, "  Setup complete. Run 'fhir-validator start' to launch the server.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
