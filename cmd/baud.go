/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
)

// baudCmd represents the baud command
var baudCmd = &cobra.Command{
	Use:   "baud <port> <rate>",
	Short: "Change the baud rate of an open port",
	Long: `Open a port with the configured settings and switch it to a new baud rate.

The new rate stays in effect for as long as the device keeps its termios
settings, which on Linux usually means until the next open.

Examples:
  serialstream baud /dev/ttyUSB0 9600
  serialstream baud /dev/ttyUSB0 921600`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		rate, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q: %w", args[1], err)
		}

		s, err := openSession(cmd.Context(), portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.Update(cmd.Context(), serialstream.UpdateOptions{BaudRate: rate}); err != nil {
			return fmt.Errorf("updating baud rate: %w", err)
		}

		fmt.Printf("Baud rate set to %d on %s\n", rate, portPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(baudCmd)
}
