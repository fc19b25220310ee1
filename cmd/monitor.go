/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
)

var (
	monitorSignals  []string
	monitorInterval time.Duration
)

// signalMask selects which modem inputs are watched
type signalMask uint8

const (
	signalCTS signalMask = 1 << iota
	signalDSR
	signalRI
	signalDCD
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem input signal changes.

Samples the modem status at a fixed interval and reports when a watched signal
changes state. Press Ctrl+C to stop.

Examples:
  serialstream monitor /dev/ttyUSB0
  serialstream monitor /dev/ttyUSB0 --signals cts,dsr
  serialstream monitor /dev/ttyUSB0 --signals dcd --interval 10ms

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			return fmt.Errorf("parsing signals: %w", err)
		}
		if monitorInterval <= 0 {
			return fmt.Errorf("interval must be positive")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, strings.Join(monitorSignals, ", "))
		fmt.Println("Press Ctrl+C to stop")

		return monitorSignalChanges(ctx, s, mask, monitorInterval, func(status serialstream.ModemStatus, changed signalMask, initial bool) {
			timestamp := time.Now().Format("15:04:05.000")
			if initial {
				fmt.Printf("[%s] Initial state:\n", timestamp)
			} else {
				fmt.Printf("[%s] Signal change detected:\n", timestamp)
			}
			printSignals(status, changed)
		})
	},
}

func parseSignalMask(signalNames []string) (signalMask, error) {
	if len(signalNames) == 0 {
		return signalCTS | signalDSR | signalRI | signalDCD, nil
	}

	var mask signalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= signalCTS
		case "dsr":
			mask |= signalDSR
		case "ri":
			mask |= signalRI
		case "dcd":
			mask |= signalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

// diffSignals returns the watched inputs that differ between a and b
func diffSignals(a, b serialstream.ModemStatus, mask signalMask) signalMask {
	var changed signalMask
	if a.CTS != b.CTS {
		changed |= signalCTS
	}
	if a.DSR != b.DSR {
		changed |= signalDSR
	}
	if a.RI != b.RI {
		changed |= signalRI
	}
	if a.DCD != b.DCD {
		changed |= signalDCD
	}
	return changed & mask
}

// monitorSignalChanges calls report with the initial status and then every
// time a watched signal changes, until ctx is done.
func monitorSignalChanges(
	ctx context.Context,
	s *serialstream.Session,
	mask signalMask,
	interval time.Duration,
	report func(status serialstream.ModemStatus, changed signalMask, initial bool),
) error {
	last, err := s.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading initial signals: %w", err)
	}
	report(last, mask, true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		status, err := s.Get(ctx)
		if err != nil {
			return fmt.Errorf("reading signals: %w", err)
		}
		if changed := diffSignals(last, status, mask); changed != 0 {
			report(status, changed, false)
		}
		last = status
	}
}

func printSignals(status serialstream.ModemStatus, mask signalMask) {
	if mask&signalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(status.CTS))
	}
	if mask&signalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(status.DSR))
	}
	if mask&signalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(status.RI))
	}
	if mask&signalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(status.DCD))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 50*time.Millisecond,
		"How often to sample the modem status")
}
