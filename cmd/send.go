/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/hexutil"
	"github.com/allbin/serialstream/internal/tui/colors"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port.

Data can be provided as:
- Command line argument: send /dev/ttyUSB0 "Hello World"
- From stdin (pipe): echo "test data" | serialstream send /dev/ttyUSB0
- Interactive mode: serialstream send /dev/ttyUSB0 (prompts for input)

Features include:
- Automatic line endings (--newline flag)
- Hex input support (--hex flag)
- Discarding stale buffered data before sending (--flush flag)
- Waiting for the data to leave the UART (--drain flag)

Example usage:
  serialstream send /dev/ttyUSB0 "Hello World"
  serialstream send /dev/ttyUSB0 "AT+GMR" --newline --drain
  serialstream send /dev/ttyUSB0 "02 06 00 03" --hex
  echo "test" | serialstream send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		var data string
		if len(args) == 2 {
			data = args[1]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading from stdin: %w", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		flush, _ := cmd.Flags().GetBool("flush")
		drain, _ := cmd.Flags().GetBool("drain")

		payload, err := buildPayload(data, hexMode, addNewline)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		s, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		return sendData(ctx, s, portPath, payload, flush, drain)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data")
	sendCmd.Flags().Bool("flush", false, "Discard pending input and output before sending")
	sendCmd.Flags().BoolP("drain", "d", false, "Wait until all data has been transmitted")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Mauve)

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// buildPayload turns the user's input into the bytes to write
func buildPayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		payload, err := hexutil.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return payload, nil
	}
	if addNewline {
		data += "\n"
	}
	return []byte(data), nil
}

func sendData(ctx context.Context, s *serialstream.Session, portPath string, data []byte, flush, drain bool) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(colors.Green).
		Bold(true)

	if flush {
		if err := s.Flush(ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	fmt.Printf("%s Sending %d bytes to %s...\n", infoStyle.Render("📤"), len(data), portPath)

	n, err := s.Write(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	logger.Debug("send: written", zap.Int("bytes", n))

	if drain {
		if err := s.Drain(ctx); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)

	preview := hexutil.Printable(data)
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)
	return nil
}
