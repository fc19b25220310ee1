package serialstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is how often a blocked read or write rechecks its context
const pollInterval = 100 * time.Millisecond

const (
	stateIdle int32 = iota
	stateOpen
	stateClosed
)

// TermiosTransport is the default Transport: a raw termios tty driven
// through golang.org/x/sys/unix.
//
// Reads wait in poll(2) on the device and on a wake pipe. Close writes to
// the pipe, so a read pending in another goroutine returns ErrCanceled
// instead of blocking until the next byte arrives.
type TermiosTransport struct {
	// mu guards the lifetime of the file descriptors. Every I/O operation
	// holds it for reading; only Close takes it for writing.
	mu    sync.RWMutex
	state atomic.Int32
	fd    int
	wakeR int
	wakeW int

	optsMu sync.Mutex
	opts   PortOptions
}

// Ensure TermiosTransport implements Transport at compile time
var _ Transport = (*TermiosTransport)(nil)

// TermiosBindings is the default Bindings
func TermiosBindings() Transport {
	return NewTermiosTransport()
}

// NewTermiosTransport returns an unopened termios transport
func NewTermiosTransport() *TermiosTransport {
	return &TermiosTransport{fd: -1, wakeR: -1, wakeW: -1}
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// openError maps errno values from open(2) onto the package sentinels
func openError(path string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("failed to open %s: %w", path, ErrDeviceNotFound)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("failed to open %s: %w", path, ErrPermissionDenied)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("failed to open %s: %w", path, ErrDeviceInUse)
	default:
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
}

// Open opens and configures the device at opts.Path
func (t *TermiosTransport) Open(ctx context.Context, opts PortOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("%w: no device path", ErrInvalidConfig)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Load() != stateIdle {
		return ErrPortAlreadyOpen
	}

	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK | unix.O_CLOEXEC
	if opts.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(opts.Path, flags, 0)
	if err != nil {
		return openError(opts.Path, err)
	}

	if opts.Exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			unix.Close(fd)
			return fmt.Errorf("failed to lock %s: %w", opts.Path, ErrDeviceInUse)
		}
	}

	if err := configurePort(fd, opts); err != nil {
		unix.Close(fd)
		return err
	}

	if opts.InitialRTS != nil {
		if err := setRTSSignal(fd, *opts.InitialRTS); err != nil {
			unix.Close(fd)
			return fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if opts.InitialDTR != nil {
		if err := setDTR(fd, *opts.InitialDTR); err != nil {
			unix.Close(fd)
			return fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to create wake pipe: %w", err)
	}

	t.fd = fd
	t.wakeR, t.wakeW = wake[0], wake[1]
	t.optsMu.Lock()
	t.opts = opts
	t.optsMu.Unlock()
	t.state.Store(stateOpen)
	return nil
}

// configurePort puts the tty in raw mode with the requested framing
func configurePort(fd int, opts PortOptions) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	baudRate, err := getBaudRate(opts.BaudRate)
	if err != nil {
		return err
	}

	termios.Iflag = 0 // No input processing
	termios.Oflag = 0 // No output processing
	termios.Lflag = 0 // No line processing (raw mode)
	termios.Cflag = unix.CREAD | unix.CLOCAL | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	// Reads are driven by poll, so the kernel never waits on its own
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	switch opts.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if opts.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch opts.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}

	if opts.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// IsOpen reports whether the port is open
func (t *TermiosTransport) IsOpen() bool {
	return t.state.Load() == stateOpen
}

// checkOpen must be called with mu held
func (t *TermiosTransport) checkOpen() error {
	switch t.state.Load() {
	case stateOpen:
		return nil
	case stateIdle:
		return ErrPortNotOpen
	default:
		return ErrPortClosed
	}
}

// pollTimeout returns the poll(2) timeout in milliseconds. ok is false once
// deadline has passed.
func pollTimeout(ctx context.Context, deadline time.Time) (ms int, ok bool) {
	ms = -1
	if ctx.Done() != nil {
		ms = int(pollInterval / time.Millisecond)
	}
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, false
		}
		left := int((remaining + time.Millisecond - 1) / time.Millisecond)
		if ms < 0 || left < ms {
			ms = left
		}
	}
	return ms, true
}

// Read waits for data and reads whatever is available, up to len(buf).
// It returns 0, nil when the configured read timeout expires and
// ErrCanceled when the port is closed while waiting.
func (t *TermiosTransport) Read(ctx context.Context, buf []byte) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		if errors.Is(err, ErrPortClosed) {
			return 0, ErrCanceled
		}
		return 0, err
	}

	t.optsMu.Lock()
	readTimeout := t.opts.ReadTimeout
	t.optsMu.Unlock()

	var deadline time.Time
	if readTimeout > 0 {
		deadline = time.Now().Add(readTimeout)
	}

	fds := []unix.PollFd{
		{Fd: int32(t.fd), Events: unix.POLLIN},
		{Fd: int32(t.wakeR), Events: unix.POLLIN},
	}

	for {
		if t.state.Load() == stateClosed {
			return 0, ErrCanceled
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		timeout, ok := pollTimeout(ctx, deadline)
		if !ok {
			return 0, nil
		}

		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, timeout); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, fmt.Errorf("poll failed: %w", err)
		}

		if fds[1].Revents != 0 {
			// Only Close writes to the wake pipe
			return 0, ErrCanceled
		}
		if fds[0].Revents == 0 {
			continue
		}

		n, err := unix.Read(t.fd, buf)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return 0, err
		case n == 0 && fds[0].Revents&unix.POLLHUP != 0:
			return 0, ErrDeviceHangup
		}
		return n, nil
	}
}

// Write writes all of data, waiting for the device to accept it
func (t *TermiosTransport) Write(ctx context.Context, data []byte) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	fds := []unix.PollFd{
		{Fd: int32(t.fd), Events: unix.POLLOUT},
		{Fd: int32(t.wakeR), Events: unix.POLLIN},
	}

	written := 0
	for written < len(data) {
		if t.state.Load() == stateClosed {
			return written, ErrPortClosed
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := unix.Write(t.fd, data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil, errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			timeout, _ := pollTimeout(ctx, time.Time{})
			if _, err := unix.Poll(fds, timeout); err != nil && !errors.Is(err, unix.EINTR) {
				return written, fmt.Errorf("poll failed: %w", err)
			}
		default:
			return written, err
		}
	}
	return written, nil
}

// Close closes the port. A read pending in another goroutine returns
// ErrCanceled. Closing twice returns ErrPortClosed.
func (t *TermiosTransport) Close() error {
	if !t.state.CompareAndSwap(stateOpen, stateClosed) {
		if t.state.Load() == stateIdle {
			return ErrPortNotOpen
		}
		return ErrPortClosed
	}

	// Wake pollers before waiting for them to release mu
	unix.Write(t.wakeW, []byte{1})

	t.mu.Lock()
	defer t.mu.Unlock()

	err := unix.Close(t.fd)
	unix.Close(t.wakeR)
	unix.Close(t.wakeW)
	t.fd, t.wakeR, t.wakeW = -1, -1, -1
	return err
}

// Update changes the baud rate of the open port
func (t *TermiosTransport) Update(ctx context.Context, opts UpdateOptions) error {
	baudRate, err := getBaudRate(opts.BaudRate)
	if err != nil {
		return err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	termios, err := unix.IoctlGetTermios(t.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate
	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	t.optsMu.Lock()
	t.opts.BaudRate = opts.BaudRate
	t.optsMu.Unlock()
	return nil
}

// Set drives RTS, DTR and break. Nil fields are left unchanged.
func (t *TermiosTransport) Set(ctx context.Context, lines ControlLines) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return err
	}

	if lines.RTS != nil {
		if err := setRTSSignal(t.fd, *lines.RTS); err != nil {
			return fmt.Errorf("failed to set RTS: %w", err)
		}
	}
	if lines.DTR != nil {
		if err := setDTR(t.fd, *lines.DTR); err != nil {
			return fmt.Errorf("failed to set DTR: %w", err)
		}
	}
	if lines.Break != nil {
		if err := setBreak(t.fd, *lines.Break); err != nil {
			return fmt.Errorf("failed to set break: %w", err)
		}
	}
	return nil
}

// Get returns current state of all modem control signals
func (t *TermiosTransport) Get(ctx context.Context) (ModemStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return ModemStatus{}, err
	}

	status, err := getModemStatus(t.fd)
	if err != nil {
		return ModemStatus{}, err
	}
	return modemStatusFromBits(status), nil
}

// Flush discards unread input and unwritten output
func (t *TermiosTransport) Flush(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return err
	}
	return unix.IoctlSetInt(t.fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// Drain waits until all output written to the port has been transmitted
func (t *TermiosTransport) Drain(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkOpen(); err != nil {
		return err
	}
	return unix.IoctlSetInt(t.fd, unix.TCSBRK, 1)
}

// getModemStatus retrieves modem control signals using unix package
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// modemStatusFromBits converts TIOCM bits to ModemStatus
func modemStatusFromBits(status int) ModemStatus {
	return ModemStatus{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// setDTR sets DTR signal state
func setDTR(fd int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_DTR)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, unix.TIOCM_DTR)
}

// setRTSSignal sets RTS signal state
func setRTSSignal(fd int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_RTS)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, unix.TIOCM_RTS)
}

// setBreak starts or stops transmitting a break condition
func setBreak(fd int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCSBRK, 0)
	}
	return unix.IoctlSetInt(fd, unix.TIOCCBRK, 0)
}
