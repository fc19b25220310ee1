/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/config"
	"github.com/allbin/serialstream/internal/logging"
)

var (
	cfgFile string
	v       = config.New()
	cfg     = config.Default()
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialstream",
	Short: "Read, write and control serial ports",
	Long: `serialstream opens a serial port as a stream of received chunks and
exposes the usual control operations: writes, flush, drain, baud rate
changes and the RTS/DTR/break lines.

Settings come from flags, SERIALSTREAM_* environment variables and an
optional YAML file (./serialstream.yaml or ~/.config/serialstream/).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logging.SetupLogger(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		logger.Debug("configuration loaded",
			zap.String("config", v.ConfigFileUsed()),
			zap.String("driver", cfg.Port.Driver),
			zap.Int("baud", cfg.Port.BaudRate))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./serialstream.yaml)")

	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console, json")
	pf.String("log-file", "", "Write logs to this file instead of stderr")

	pf.String("driver", "termios", "Port driver: termios, bugst")
	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits (5-8)")
	pf.Int("stop-bits", 1, "Stop bits (1 or 2)")
	pf.String("parity", "none", "Parity: none, odd, even, mark, space")
	pf.StringP("flow-control", "f", "none", "Flow control: none, rtscts")
	pf.Int("read-size", serialstream.DefaultReadSize, "Bytes requested per read")
	pf.Duration("read-timeout", 0, "Give up on a read after this long (0 = wait for data)")
	pf.String("initial-rts", "", "Set RTS on open: high, low")
	pf.String("initial-dtr", "", "Set DTR on open: high, low")
	pf.Bool("exclusive", false, "Request exclusive access to the device")
	pf.Bool("sync-write", false, "Open the device with O_SYNC")

	bindFlags(v, rootCmd, map[string]string{
		"log.level":         "log-level",
		"log.format":        "log-format",
		"log.file":          "log-file",
		"port.driver":       "driver",
		"port.baud_rate":    "baud",
		"port.data_bits":    "data-bits",
		"port.stop_bits":    "stop-bits",
		"port.parity":       "parity",
		"port.flow_control": "flow-control",
		"port.read_size":    "read-size",
		"port.read_timeout": "read-timeout",
		"port.initial_rts":  "initial-rts",
		"port.initial_dtr":  "initial-dtr",
		"port.exclusive":    "exclusive",
		"port.sync_write":   "sync-write",
	})
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

// openSession opens path with the loaded configuration. extra options are
// applied last.
func openSession(ctx context.Context, path string, extra ...serialstream.Option) (*serialstream.Session, error) {
	opts, err := cfg.Port.Options(path)
	if err != nil {
		return nil, err
	}
	opts = append(opts, serialstream.WithLogger(logger.Named("session").With(zap.String("port", path))))
	opts = append(opts, extra...)

	s, err := serialstream.Open(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger.Info("port opened", zap.String("port", path), zap.String("driver", cfg.Port.Driver))
	return s, nil
}

// portOptions resolves the configured transport options for path
func portOptions(path string) (serialstream.PortOptions, error) {
	opts, err := cfg.Port.Options(path)
	if err != nil {
		return serialstream.PortOptions{}, err
	}
	c := serialstream.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return serialstream.PortOptions{}, err
		}
	}
	return c.Port, nil
}

// closeSession closes s, logging instead of failing since callers are already
// on their way out.
func closeSession(s *serialstream.Session) {
	if err := s.Close(); err != nil {
		logger.Warn("close failed", zap.Error(err))
	}
}
