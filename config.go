package serialstream

import (
	"time"

	"go.uber.org/zap"
)

// DefaultReadSize is the chunk length used by Next when no size is given
const DefaultReadSize = 1024

// Config holds the configuration for a Session and its Transport
type Config struct {
	// Bindings selects the Transport implementation
	Bindings Bindings
	// ReadSize is the default number of bytes requested per Next call
	ReadSize int
	Logger   *zap.Logger
	// Port is handed to Transport.Open unchanged
	Port PortOptions
}

// Option is a functional option for configuring a Session
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Bindings: TermiosBindings,
		ReadSize: DefaultReadSize,
		Logger:   zap.NewNop(),
		Port: PortOptions{
			BaudRate:    115200,
			DataBits:    8,
			StopBits:    1,
			Parity:      ParityNone,
			FlowControl: FlowControlNone,
			WriteMode:   WriteModeBuffered,
		},
	}
}

// WithBindings selects the Transport implementation
func WithBindings(b Bindings) Option {
	return func(c *Config) error {
		if b == nil {
			return ErrInvalidConfig
		}
		c.Bindings = b
		return nil
	}
}

// WithReadSize sets the default chunk size used by Next
func WithReadSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidReadSize
		}
		c.ReadSize = n
		return nil
	}
}

// WithLogger sets the logger used for read lifecycle tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.Logger = logger
		return nil
	}
}

// WithPath sets the device path, e.g. /dev/ttyUSB0
func WithPath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return ErrInvalidConfig
		}
		c.Port.Path = path
		return nil
	}
}

// WithPortOptions replaces all transport options at once
func WithPortOptions(opts PortOptions) Option {
	return func(c *Config) error {
		c.Port = opts
		return nil
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.Port.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.Port.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.Port.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Port.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc != FlowControlNone && fc != FlowControlRTSCTS {
			return ErrInvalidConfig
		}
		c.Port.FlowControl = fc
		return nil
	}
}

// WithReadTimeout bounds how long a read waits for data. Zero (the default)
// waits until data arrives or the port is closed. Millisecond granularity.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout%time.Millisecond != 0 {
			return ErrInvalidConfig
		}
		c.Port.ReadTimeout = timeout
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.Port.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return WithWriteMode(WriteModeSynced)
}

// WithInitialRTS sets RTS right after the port is opened
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.Port.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets DTR right after the port is opened
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.Port.InitialDTR = &state
		return nil
	}
}

// WithExclusive requests exclusive access (TIOCEXCL) to the device
func WithExclusive() Option {
	return func(c *Config) error {
		c.Port.Exclusive = true
		return nil
	}
}
