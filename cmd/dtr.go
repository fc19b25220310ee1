/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The DTR signal indicates that the terminal is ready for communication.

Examples:
  serialstream dtr /dev/ttyUSB0 high
  serialstream dtr /dev/ttyUSB0 low
  serialstream dtr /dev/ttyUSB0 on
  serialstream dtr /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setControlLine(cmd.Context(), args[0], args[1], "DTR", func(state *bool) serialstream.ControlLines {
			return serialstream.ControlLines{DTR: state}
		}, func(status serialstream.ModemStatus) bool {
			return status.DTR
		})
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
