package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/supervisor"
)

var startSession bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Make sure a validator server is running on the configured port",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sup, err := newSupervisor(GetConfig())
		if err != nil {
			return err
		}
		defer sup.Shutdown()

		res, err := ensureServer(ctx, sup)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch res {
		case supervisor.StartAlreadyRunning:
			fmt.Fprintf(out, "Validator server already running on port %d.\n", sup.Port())
		case supervisor.StartLostRace:
			fmt.Fprintf(out, "Validator server started by another client on port %d.\n", sup.Port())
		default:
			fmt.Fprintf(out, "Validator server started on port %d.\n", sup.Port())
		}

		if !startSession {
			return nil
		}
		conn, err := openSession(ctx, sup, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Session %s opened.\n", conn.record.ID)
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&startSession, "session", false, "also open a new session and save it for later runs")
	rootCmd.AddCommand(startCmd)
}
