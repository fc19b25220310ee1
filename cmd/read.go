/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/serialstream"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <port>",
	Short: "Read data from a serial port",
	Long: `Read incoming data from a serial port and write it to stdout or a file.

Runs until the port is closed, --count chunks have been read, or the command
is interrupted (Ctrl+C). Interrupting closes the port, which ends the read in
progress cleanly.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serialstream read /dev/ttyUSB0
  serialstream read /dev/ttyUSB0 --output capture.log
  serialstream read /dev/ttyUSB0 --size 16 --count 4 --hex
  serialstream read /dev/ttyUSB0 --baud 9600 --read-timeout 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		size, _ := cmd.Flags().GetInt("size")
		count, _ := cmd.Flags().GetInt("count")
		outputPath, _ := cmd.Flags().GetString("output")
		hexMode, _ := cmd.Flags().GetBool("hex")

		ctx := cmd.Context()
		s, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer closeSession(s)

		var out io.Writer = os.Stdout
		if outputPath != "" {
			file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open output file: %w", err)
			}
			defer file.Close()
			out = file
		}
		if hexMode {
			dumper := hex.Dumper(out)
			defer dumper.Close()
			out = dumper
		}

		// Reads keep using ctx: an interrupt closes the port, which ends the
		// sequence instead of failing the pending read.
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		closeOnDone(sigCtx, s)

		fmt.Fprintf(os.Stderr, "Reading from %s (Ctrl+C to stop)\n", portPath)

		start := time.Now()
		stats, err := readChunks(ctx, s, out, size, count)
		if sigCtx.Err() != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, port closed\n")
		}
		fmt.Fprintf(os.Stderr, "Read %d bytes in %d chunks over %v\n",
			stats.bytes, stats.chunks, time.Since(start).Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().IntP("size", "s", 0, "Bytes per read (default: --read-size)")
	readCmd.Flags().IntP("count", "n", 0, "Stop after this many non-empty chunks (0 = until closed)")
	readCmd.Flags().StringP("output", "o", "", "Append data to this file instead of stdout")
	readCmd.Flags().BoolP("hex", "x", false, "Write a hex dump instead of raw bytes")
}

// closeOnDone closes s once ctx is done. The returned channel is closed after
// the session has been closed.
func closeOnDone(ctx context.Context, s *serialstream.Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		closeSession(s)
	}()
	return done
}

type readStats struct {
	bytes  int64
	chunks int
}

// readChunks copies chunks from s to out until the sequence ends or count
// non-empty chunks were copied. size <= 0 uses the session's read size.
func readChunks(ctx context.Context, s *serialstream.Session, out io.Writer, size, count int) (readStats, error) {
	var stats readStats
	if size <= 0 {
		size = s.ReadSize()
	}

	for count <= 0 || stats.chunks < count {
		res, err := s.NextN(ctx, size)
		if err != nil {
			return stats, fmt.Errorf("read error: %w", err)
		}
		if res.End {
			logger.Debug("read: sequence ended", zap.Int64("bytes", stats.bytes))
			return stats, nil
		}
		if len(res.Data) == 0 {
			continue
		}

		if _, err := out.Write(res.Data); err != nil {
			return stats, fmt.Errorf("write error: %w", err)
		}
		stats.bytes += int64(len(res.Data))
		stats.chunks++
	}
	return stats, nil
}
