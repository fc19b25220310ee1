/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified port.

Examples:
  serialstream signals /dev/ttyUSB0
  serialstream signals /dev/ttyACM0

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		s, err := openSession(cmd.Context(), portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		status, err := s.Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading modem signals: %w", err)
		}

		fmt.Printf("Modem Signals for %s:\n\n", portPath)
		printModemStatus(status)
		return nil
	},
}

func printModemStatus(status serialstream.ModemStatus) {
	fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(status.CTS))
	fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(status.DSR))
	fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(status.RI))
	fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(status.DCD))
	fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(status.RTS))
	fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(status.DTR))
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
