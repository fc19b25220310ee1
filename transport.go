package serialstream

import (
	"context"
	"time"
)

// Transport is an exclusively owned connection to a serial device.
//
// Read must return an error matching ErrCanceled (errors.Is) when it is
// interrupted by Close. Every other failure is reported as-is and is
// passed through the Session untouched.
type Transport interface {
	Open(ctx context.Context, opts PortOptions) error
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, data []byte) (int, error)
	Close() error
	Update(ctx context.Context, opts UpdateOptions) error
	Set(ctx context.Context, lines ControlLines) error
	Get(ctx context.Context) (ModemStatus, error)
	Flush(ctx context.Context) error
	Drain(ctx context.Context) error
	IsOpen() bool
}

// Bindings creates a fresh, unopened Transport
type Bindings func() Transport

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// PortOptions is forwarded verbatim to Transport.Open. The Session never
// inspects it.
type PortOptions struct {
	Path        string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
	// ReadTimeout bounds how long a read waits for the first byte. Zero waits
	// until data arrives or the port is closed.
	ReadTimeout time.Duration
	WriteMode   WriteMode
	InitialRTS  *bool
	InitialDTR  *bool
	Exclusive   bool
}

// UpdateOptions holds settings that may change while the port is open
type UpdateOptions struct {
	BaudRate int
}

// ControlLines sets output control signals. Nil fields are left unchanged.
type ControlLines struct {
	RTS   *bool // Request To Send
	DTR   *bool // Data Terminal Ready
	Break *bool
}

// ModemStatus represents modem control signal states
type ModemStatus struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}
