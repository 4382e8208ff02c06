package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/session"
	"github.com/Outburn-IL/fhir-validator/internal/supervisor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the validator server is up and the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := GetConfig().Port
		if supervisor.PortInUse(port) {
			cmd.Printf("Server: running on port %d\n", port)
		} else {
			cmd.Printf("Server: not running (port %d is free)\n", port)
		}

		store, err := session.NewSessionStore(port)
		if err != nil {
			return err
		}
		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no saved session")
				return nil
			}
			return err
		}

		cmd.Printf("Session: %s\n", s.ID)
		cmd.Printf("Started: %s\n", s.StartTime.Format(time.RFC3339))
		cmd.Printf("Last used: %s (%s ago)\n", s.LastUsed.Format(time.RFC3339), time.Since(s.LastUsed).Round(time.Second))
		cmd.Printf("Validations: %d\n", s.Validations)
		cmd.Printf("Rotations: %d\n", s.Rotations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
