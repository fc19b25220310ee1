/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/config"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The RTS signal can be used for hardware flow control or custom signaling.

Examples:
  serialstream rts /dev/ttyUSB0 high
  serialstream rts /dev/ttyUSB0 low
  serialstream rts /dev/ttyUSB0 on
  serialstream rts /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setControlLine(cmd.Context(), args[0], args[1], "RTS", func(state *bool) serialstream.ControlLines {
			return serialstream.ControlLines{RTS: state}
		}, func(status serialstream.ModemStatus) bool {
			return status.RTS
		})
	},
}

// setControlLine opens portPath, applies the line built by lines and prints
// the state read back through Get.
func setControlLine(
	ctx context.Context,
	portPath, stateArg, name string,
	lines func(*bool) serialstream.ControlLines,
	readBack func(serialstream.ModemStatus) bool,
) error {
	state, err := config.ParseSignalState(stateArg)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, portPath)
	if err != nil {
		return err
	}
	defer closeSession(s)

	if err := s.Set(ctx, lines(&state)); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	current := state
	if status, err := s.Get(ctx); err != nil {
		logger.Sugar().Warnf("could not verify %s state: %v", name, err)
	} else {
		current = readBack(status)
	}

	fmt.Printf("%s set to %s on %s\n", name, formatSignalState(current), portPath)
	return nil
}

func init() {
	rootCmd.AddCommand(rtsCmd)
}
