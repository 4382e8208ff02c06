package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/collector"
	"github.com/Outburn-IL/fhir-validator/internal/report"
	"github.com/Outburn-IL/fhir-validator/internal/tui"
)

// errValidationFailed is returned when any file has ERROR or FATAL issues, so
// the process exits non-zero.
var errValidationFailed = errors.New("validation failed")

var (
	validateProfiles []string
	validateFormat   string
	validateOut      string
	validatePlain    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Validate FHIR resource files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := GetConfig()
		format := validateFormat
		if format == "" {
			format = c.DefaultFormat
		}
		if _, err := report.RendererFor(format); err != nil {
			return err
		}

		collected, err := (&collector.ResourceCollector{IgnorePatterns: c.IgnorePatterns}).Collect(args)
		if err != nil {
			return err
		}
		for _, w := range collected.Warnings {
			log.Warn("%s", w)
		}
		if len(collected.Files) == 0 {
			return fmt.Errorf("no resource files found in %v", args)
		}

		conn, err := connect(ctx, c, false)
		if err != nil {
			return err
		}
		defer conn.close()

		r := report.New(conn.sup.BaseURL(), report.SettingsFrom(conn.sup.Context()), validateProfiles, time.Now())
		if cwd, err := os.Getwd(); err == nil {
			git, warnings, err := (&collector.GitCollector{WorkDir: cwd}).Collect(ctx, collected.Files)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				log.Debug("%s", w)
			}
			r.Git = git
		}

		validated := 0
		for _, path := range collected.Files {
			log.Debug("Validating %s", path)
			res, err := conn.validateFile(ctx, path, validateProfiles)
			if err != nil {
				if saveErr := conn.save(validated); saveErr != nil {
					log.Warn("Could not save session: %v", saveErr)
				}
				return err
			}
			if res.Outcome != nil {
				validated++
			}
			r.Add(res)
		}
		r.SessionID = conn.sup.SessionID()
		if err := conn.save(validated); err != nil {
			log.Warn("Could not save session: %v", err)
		}

		if err := emitReport(cmd, r, format, c.OutputDir); err != nil {
			return err
		}
		if r.Failed() {
			return fmt.Errorf("%w: %d of %d file(s) have errors", errValidationFailed, failedCount(r), len(r.Results))
		}
		return nil
	},
}

// emitReport writes the report to a file when an output directory is set,
// otherwise shows it in the TUI or as plain text.
func emitReport(cmd *cobra.Command, r *report.Report, format, configuredDir string) error {
	out := cmd.OutOrStdout()

	dir := validateOut
	if dir == "" {
		dir = configuredDir
	}
	if dir != "" {
		path, err := writeReport(r, format, dir)
		if err != nil {
			return err
		}
		for _, res := range r.Results {
			printResult(out, res)
		}
		fmt.Fprintf(out, "Report written to %s\n", path)
		return nil
	}

	if validateFormat != "" {
		renderer, err := report.RendererFor(validateFormat)
		if err != nil {
			return err
		}
		data, err := renderer.Render(r)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if validatePlain || !isTerminal(out) {
		printReport(out, r)
		return nil
	}
	return tui.Run(r, "")
}

func failedCount(r *report.Report) int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

func init() {
	validateCmd.Flags().StringArrayVarP(&validateProfiles, "profile", "p", nil, "profile URL to validate against (repeatable)")
	validateCmd.Flags().StringVar(&validateFormat, "format", "", "report format: markdown or json (overrides config)")
	validateCmd.Flags().StringVarP(&validateOut, "out", "o", "", "directory to write the report to (overrides config)")
	validateCmd.Flags().BoolVar(&validatePlain, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(validateCmd)
}
