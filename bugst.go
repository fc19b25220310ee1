package serialstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// BugstTransport is a Transport backed by go.bug.st/serial. It is portable
// but cannot do hardware flow control or hold a break condition.
type BugstTransport struct {
	// openPort defaults to serial.Open and is replaced in tests
	openPort func(name string, mode *serial.Mode) (serial.Port, error)

	mu          sync.Mutex
	port        serial.Port
	mode        serial.Mode
	readTimeout time.Duration
	rts, dtr    bool
	state       atomic.Int32
}

// Ensure BugstTransport implements Transport at compile time
var _ Transport = (*BugstTransport)(nil)

// BugstBindings selects the go.bug.st/serial transport
func BugstBindings() Transport {
	return NewBugstTransport()
}

// NewBugstTransport returns an unopened go.bug.st/serial transport
func NewBugstTransport() *BugstTransport {
	return &BugstTransport{openPort: serial.Open}
}

// bugstMode translates PortOptions into a go.bug.st mode
func bugstMode(opts PortOptions) (*serial.Mode, error) {
	if _, err := getBaudRate(opts.BaudRate); err != nil {
		return nil, err
	}
	if opts.FlowControl != FlowControlNone || opts.WriteMode != WriteModeBuffered {
		return nil, fmt.Errorf("%w: flow control and synced writes need the termios transport", ErrNotSupported)
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		return nil, ErrInvalidConfig
	}

	if opts.InitialRTS != nil || opts.InitialDTR != nil {
		// go.bug.st asserts both lines by default
		bits := &serial.ModemOutputBits{RTS: true, DTR: true}
		if opts.InitialRTS != nil {
			bits.RTS = *opts.InitialRTS
		}
		if opts.InitialDTR != nil {
			bits.DTR = *opts.InitialDTR
		}
		mode.InitialStatusBits = bits
	}
	return mode, nil
}

// bugstError maps go.bug.st port errors onto the package sentinels
func bugstError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case serial.PortBusy:
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	case serial.InvalidSpeed:
		return fmt.Errorf("%w: %v", ErrInvalidBaudRate, err)
	case serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits, serial.InvalidTimeoutValue:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	case serial.PortClosed:
		return fmt.Errorf("%w: %v", ErrPortClosed, err)
	default:
		return err
	}
}

// Open opens the port at opts.Path
func (b *BugstTransport) Open(ctx context.Context, opts PortOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("%w: no device path", ErrInvalidConfig)
	}
	mode, err := bugstMode(opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state.Load() != stateIdle {
		return ErrPortAlreadyOpen
	}

	port, err := b.openPort(opts.Path, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.Path, bugstError(err))
	}

	// Reads wake up this often to honor the context and the read timeout
	if err := port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", bugstError(err))
	}

	b.port = port
	b.mode = *mode
	b.readTimeout = opts.ReadTimeout
	b.rts, b.dtr = true, true
	if mode.InitialStatusBits != nil {
		b.rts, b.dtr = mode.InitialStatusBits.RTS, mode.InitialStatusBits.DTR
	}
	b.state.Store(stateOpen)
	return nil
}

// IsOpen reports whether the port is open
func (b *BugstTransport) IsOpen() bool {
	return b.state.Load() == stateOpen
}

// current returns the open port. The port itself is safe for concurrent use,
// so callers do not hold mu while doing I/O.
func (b *BugstTransport) current() (serial.Port, error) {
	switch b.state.Load() {
	case stateOpen:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.port, nil
	case stateIdle:
		return nil, ErrPortNotOpen
	default:
		return nil, ErrPortClosed
	}
}

// Read waits for data and returns whatever is available, up to len(buf)
func (b *BugstTransport) Read(ctx context.Context, buf []byte) (int, error) {
	port, err := b.current()
	if err != nil {
		if errors.Is(err, ErrPortClosed) {
			return 0, ErrCanceled
		}
		return 0, err
	}

	b.mu.Lock()
	readTimeout := b.readTimeout
	b.mu.Unlock()

	var deadline time.Time
	if readTimeout > 0 {
		deadline = time.Now().Add(readTimeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, err := port.Read(buf)
		if err != nil {
			var portErr *serial.PortError
			if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
				return n, ErrCanceled
			}
			return n, bugstError(err)
		}
		if n > 0 {
			return n, nil
		}
		if !b.IsOpen() {
			return 0, ErrCanceled
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, nil
		}
	}
}

// Write writes data to the port
func (b *BugstTransport) Write(ctx context.Context, data []byte) (int, error) {
	port, err := b.current()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := port.Write(data)
	if err != nil {
		return n, bugstError(err)
	}
	return n, nil
}

// Close closes the port; a pending Read returns ErrCanceled
func (b *BugstTransport) Close() error {
	if !b.state.CompareAndSwap(stateOpen, stateClosed) {
		if b.state.Load() == stateIdle {
			return ErrPortNotOpen
		}
		return ErrPortClosed
	}

	b.mu.Lock()
	port := b.port
	b.mu.Unlock()
	return bugstError(port.Close())
}

// Update changes the baud rate of the open port
func (b *BugstTransport) Update(ctx context.Context, opts UpdateOptions) error {
	if _, err := getBaudRate(opts.BaudRate); err != nil {
		return err
	}
	port, err := b.current()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mode := b.mode
	mode.BaudRate = opts.BaudRate
	mode.InitialStatusBits = nil
	if err := port.SetMode(&mode); err != nil {
		return bugstError(err)
	}
	b.mode = mode
	return nil
}

// Set drives RTS and DTR. Holding a break condition is not supported.
func (b *BugstTransport) Set(ctx context.Context, lines ControlLines) error {
	port, err := b.current()
	if err != nil {
		return err
	}
	if lines.Break != nil && *lines.Break {
		return fmt.Errorf("%w: break", ErrNotSupported)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if lines.RTS != nil {
		if err := port.SetRTS(*lines.RTS); err != nil {
			return fmt.Errorf("failed to set RTS: %w", bugstError(err))
		}
		b.rts = *lines.RTS
	}
	if lines.DTR != nil {
		if err := port.SetDTR(*lines.DTR); err != nil {
			return fmt.Errorf("failed to set DTR: %w", bugstError(err))
		}
		b.dtr = *lines.DTR
	}
	return nil
}

// Get returns the modem input lines. RTS and DTR report the last state set,
// since go.bug.st cannot read output lines back.
func (b *BugstTransport) Get(ctx context.Context) (ModemStatus, error) {
	port, err := b.current()
	if err != nil {
		return ModemStatus{}, err
	}

	bits, err := port.GetModemStatusBits()
	if err != nil {
		return ModemStatus{}, bugstError(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return ModemStatus{
		CTS: bits.CTS,
		DSR: bits.DSR,
		RI:  bits.RI,
		DCD: bits.DCD,
		RTS: b.rts,
		DTR: b.dtr,
	}, nil
}

// Flush discards unread input and unwritten output
func (b *BugstTransport) Flush(ctx context.Context) error {
	port, err := b.current()
	if err != nil {
		return err
	}
	if err := port.ResetInputBuffer(); err != nil {
		return bugstError(err)
	}
	return bugstError(port.ResetOutputBuffer())
}

// Drain waits until all written output has been transmitted
func (b *BugstTransport) Drain(ctx context.Context) error {
	port, err := b.current()
	if err != nil {
		return err
	}
	return bugstError(port.Drain())
}
