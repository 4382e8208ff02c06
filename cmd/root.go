package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/config"
	"github.com/Outburn-IL/fhir-validator/internal/logger"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// log is the logger shared by subcommands, writing to the command's stderr.
var log = logger.Default()

var (
	flagPort    int
	flagJar     string
	flagVerbose bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:          "fhir-validator",
	Short:        "Run and talk to a shared FHIR validation server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First run: no global config, interactive terminal → run the wizard.
		// Non-interactive (tests, pipes): continue with defaults.
		if !config.GlobalExists() && isTerminal(cmd.InOrStdin()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to fhir-validator! Looks like this is your first time.")
			if err := runSetup(cmd); err != nil {
				return err
			}
		}

		return loadConfig(cmd)
	},
}

// loadConfig merges the global and project config files with the flags and
// configures the logger.
func loadConfig(cmd *cobra.Command) error {
	global, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("loading global config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	project, err := config.LoadProject(cwd)
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}
	cfg = config.Merge(global, project)

	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagJar != "" {
		cfg.JarPath = flagJar
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	switch {
	case flagVerbose:
		level = logger.LevelDebug
	case flagQuiet:
		level = logger.LevelError
	}
	log = logger.New(cmd.ErrOrStderr(), level)
	logger.SetDefault(log)
	return nil
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "validator server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagJar, "jar", "", "path to validator_cli.jar (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "log errors only")
}
