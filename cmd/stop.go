package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Outburn-IL/fhir-validator/internal/session"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Forget the saved session (the server keeps running)",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := GetConfig().Port
		store, err := session.NewSessionStore(port)
		if err != nil {
			return err
		}

		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Printf("no saved session for port %d\n", port)
				return nil
			}
			return err
		}
		if err := store.Delete(); err != nil {
			return err
		}

		cmd.Printf("Forgot session %s (%d validations).\n", s.ID, s.Validations)
		cmd.Printf("The validator server on port %d keeps running; other clients are not affected.\n", port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
