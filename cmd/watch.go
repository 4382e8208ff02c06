package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/collector"
)

var watchProfiles []string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Validate resource files as they change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := GetConfig()
		conn, err := connect(ctx, c, false)
		if err != nil {
			return err
		}
		defer conn.close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s on session %s. Press Ctrl+C to stop.\n", dir, conn.sup.SessionID())

		// The keep-alive task holds the session open while no files change.
		return collector.Watch(ctx, dir, c.IgnorePatterns, collector.DefaultDebounce, func(path string) {
			res, err := conn.validateFile(ctx, path, watchProfiles)
			if err != nil {
				log.Error("%v", err)
				return
			}
			validated := 0
			if res.Outcome != nil {
				validated = 1
			}
			if err := conn.save(validated); err != nil {
				log.Warn("Could not save session: %v", err)
			}
			fmt.Fprintf(out, "[%s]", timestamp(time.Now()))
			printResult(out, res)
		})
	},
}

func init() {
	watchCmd.Flags().StringArrayVarP(&watchProfiles, "profile", "p", nil, "profile URL to validate against (repeatable)")
	rootCmd.AddCommand(watchCmd)
}
