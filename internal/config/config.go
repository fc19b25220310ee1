// Package config loads CLI settings from a YAML file, SERIALSTREAM_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allbin/serialstream"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. SERIALSTREAM_PORT_BAUD_RATE
const EnvPrefix = "SERIALSTREAM"

// Config is the root CLI configuration.
type Config struct {
	Port PortConfig `mapstructure:"port"`
	Log  LogConfig  `mapstructure:"log"`
}

// PortConfig mirrors the serialstream options that make sense from a CLI.
type PortConfig struct {
	// Driver: termios or bugst
	Driver      string        `mapstructure:"driver"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	FlowControl string        `mapstructure:"flow_control"`
	ReadSize    int           `mapstructure:"read_size"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// InitialRTS/InitialDTR: empty leaves the line alone, otherwise a signal state
	InitialRTS string `mapstructure:"initial_rts"`
	InitialDTR string `mapstructure:"initial_dtr"`
	Exclusive  bool   `mapstructure:"exclusive"`
	SyncWrite  bool   `mapstructure:"sync_write"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// File, when set, receives logs instead of stderr
	File     string         `mapstructure:"file"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig controls log file rotation.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns a Config populated with the library defaults.
func Default() *Config {
	lib := serialstream.DefaultConfig()
	return &Config{
		Port: PortConfig{
			Driver:      "termios",
			BaudRate:    lib.Port.BaudRate,
			DataBits:    lib.Port.DataBits,
			StopBits:    lib.Port.StopBits,
			Parity:      "none",
			FlowControl: "none",
			ReadSize:    lib.ReadSize,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
			Rotation: RotationConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 7,
			},
		},
	}
}

// New returns a viper instance seeded with defaults and environment lookups.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port.driver", cfg.Port.Driver)
	v.SetDefault("port.baud_rate", cfg.Port.BaudRate)
	v.SetDefault("port.data_bits", cfg.Port.DataBits)
	v.SetDefault("port.stop_bits", cfg.Port.StopBits)
	v.SetDefault("port.parity", cfg.Port.Parity)
	v.SetDefault("port.flow_control", cfg.Port.FlowControl)
	v.SetDefault("port.read_size", cfg.Port.ReadSize)
	v.SetDefault("port.read_timeout", cfg.Port.ReadTimeout)
	v.SetDefault("port.initial_rts", cfg.Port.InitialRTS)
	v.SetDefault("port.initial_dtr", cfg.Port.InitialDTR)
	v.SetDefault("port.exclusive", cfg.Port.Exclusive)
	v.SetDefault("port.sync_write", cfg.Port.SyncWrite)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	return v
}

// Load reads the config file at path (or searches ./serialstream.yaml and
// ~/.config/serialstream/) and decodes the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("serialstream")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "serialstream"))
		}
	}

	// A missing file is fine when we were only searching
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if _, err := c.Port.bindings(); err != nil {
		return err
	}
	if _, err := ParseParity(c.Port.Parity); err != nil {
		return err
	}
	if _, err := ParseFlowControl(c.Port.FlowControl); err != nil {
		return err
	}
	return nil
}

func (p PortConfig) bindings() (serialstream.Bindings, error) {
	switch strings.ToLower(p.Driver) {
	case "", "termios":
		return serialstream.TermiosBindings, nil
	case "bugst":
		return serialstream.BugstBindings, nil
	default:
		return nil, fmt.Errorf("invalid port.driver: %q (valid: termios, bugst)", p.Driver)
	}
}

// Options converts the port settings into serialstream options for path.
func (p PortConfig) Options(path string) ([]serialstream.Option, error) {
	bindings, err := p.bindings()
	if err != nil {
		return nil, err
	}
	parity, err := ParseParity(p.Parity)
	if err != nil {
		return nil, err
	}
	flow, err := ParseFlowControl(p.FlowControl)
	if err != nil {
		return nil, err
	}

	opts := []serialstream.Option{
		serialstream.WithPath(path),
		serialstream.WithBindings(bindings),
		serialstream.WithBaudRate(p.BaudRate),
		serialstream.WithDataBits(p.DataBits),
		serialstream.WithStopBits(p.StopBits),
		serialstream.WithParity(parity),
		serialstream.WithFlowControl(flow),
		serialstream.WithReadSize(p.ReadSize),
		serialstream.WithReadTimeout(p.ReadTimeout),
	}

	if p.InitialRTS != "" {
		state, err := ParseSignalState(p.InitialRTS)
		if err != nil {
			return nil, fmt.Errorf("port.initial_rts: %w", err)
		}
		opts = append(opts, serialstream.WithInitialRTS(state))
	}
	if p.InitialDTR != "" {
		state, err := ParseSignalState(p.InitialDTR)
		if err != nil {
			return nil, fmt.Errorf("port.initial_dtr: %w", err)
		}
		opts = append(opts, serialstream.WithInitialDTR(state))
	}
	if p.Exclusive {
		opts = append(opts, serialstream.WithExclusive())
	}
	if p.SyncWrite {
		opts = append(opts, serialstream.WithSyncWrite())
	}
	return opts, nil
}

// ParseParity parses none, odd, even, mark or space (or their first letter)
func ParseParity(s string) (serialstream.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return serialstream.ParityNone, nil
	case "odd", "o":
		return serialstream.ParityOdd, nil
	case "even", "e":
		return serialstream.ParityEven, nil
	case "mark", "m":
		return serialstream.ParityMark, nil
	case "space", "s":
		return serialstream.ParitySpace, nil
	default:
		return 0, fmt.Errorf("invalid parity: %s (valid: none, odd, even, mark, space)", s)
	}
}

// ParseFlowControl parses none or rtscts
func ParseFlowControl(s string) (serialstream.FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return serialstream.FlowControlNone, nil
	case "rtscts", "hardware":
		return serialstream.FlowControlRTSCTS, nil
	default:
		return 0, fmt.Errorf("invalid flow control: %s (valid: none, rtscts)", s)
	}
}

// ParseSignalState parses a control line state
func ParseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}
