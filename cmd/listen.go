/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/serialstream/internal/tui/components"
	"github.com/allbin/serialstream/internal/tui/models"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port in a terminal UI.

Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Sending lines in insert mode (press i), as ASCII or hex (Tab)
- Live modem line display, RTS/DTR toggles (r/d) and flush (f)

Example usage:
  serialstream listen /dev/ttyUSB0
  serialstream listen /dev/ttyUSB0 --baud 9600
  serialstream listen /dev/ttyUSB0 --flow-control rtscts --initial-rts high`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		rawMode, _ := cmd.Flags().GetBool("raw")
		lineEnding, _ := cmd.Flags().GetString("line-ending")

		ending, err := parseLineEnding(lineEnding)
		if err != nil {
			return err
		}

		display := components.DefaultDisplayMode()
		display.ShowTimestamps = !noTimestamps && !rawMode
		display.ShowIndicators = showIndicators && !rawMode

		s, err := openSession(cmd.Context(), portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		portOpts, err := portOptions(portPath)
		if err != nil {
			return err
		}

		m := models.NewListen(s, models.Config{
			PortPath:   portPath,
			Port:       portOpts,
			Display:    display,
			LineEnding: ending,
			Logger:     logger.Named("listen"),
		})
		defer m.Stop()

		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
	listenCmd.Flags().String("line-ending", "crlf", "Appended to lines sent in ASCII mode: none, lf, cr, crlf")
}

func parseLineEnding(s string) (string, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return "", nil
	case "lf":
		return "\n", nil
	case "cr":
		return "\r", nil
	case "crlf":
		return "\r\n", nil
	default:
		return "", fmt.Errorf("invalid line ending: %s (valid: none, lf, cr, crlf)", s)
	}
}
