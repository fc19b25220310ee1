/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
)

// breakCmd represents the break command
var breakCmd = &cobra.Command{
	Use:   "break <port>",
	Short: "Send a break condition",
	Long: `Hold the TX line in the break state for the given duration, then release it.

Examples:
  serialstream break /dev/ttyUSB0
  serialstream break /dev/ttyUSB0 --duration 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx := cmd.Context()
		s, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		on, off := true, false
		if err := s.Set(ctx, serialstream.ControlLines{Break: &on}); err != nil {
			return fmt.Errorf("asserting break: %w", err)
		}

		select {
		case <-time.After(duration):
		case <-ctx.Done():
		}

		if err := s.Set(ctx, serialstream.ControlLines{Break: &off}); err != nil {
			return fmt.Errorf("releasing break: %w", err)
		}

		fmt.Printf("Sent %v break on %s\n", duration, portPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breakCmd)

	breakCmd.Flags().DurationP("duration", "d", 250*time.Millisecond, "How long to hold the break")
}
