package serialstream

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// openPTY returns the master side of a fresh pty pair and the slave path
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	master, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() {
		tty.Close()
		master.Close()
	})
	return master, tty.Name()
}

func openTermios(t *testing.T, path string, mutate func(*PortOptions)) *TermiosTransport {
	t.Helper()
	opts := DefaultConfig().Port
	opts.Path = path
	if mutate != nil {
		mutate(&opts)
	}
	tr := NewTermiosTransport()
	if err := tr.Open(context.Background(), opts); err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func readFull(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, buf)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out reading from pty")
	}
	return buf
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{4000000, false},
		{123456, true}, // Invalid baud rate
		{0, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
		} else {
			if err != nil {
				t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
			}
			if result == 0 {
				t.Errorf("Got zero result for valid baud rate %d", test.input)
			}
		}
	}
}

func TestModemStatusFromBits(t *testing.T) {
	tests := []struct {
		name     string
		bits     int
		expected ModemStatus
	}{
		{"none", 0, ModemStatus{}},
		{"CTS only", unix.TIOCM_CTS, ModemStatus{CTS: true}},
		{"DCD maps from CAR", unix.TIOCM_CAR, ModemStatus{DCD: true}},
		{"outputs", unix.TIOCM_RTS | unix.TIOCM_DTR, ModemStatus{RTS: true, DTR: true}},
		{
			"all",
			unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR | unix.TIOCM_RTS | unix.TIOCM_DTR,
			ModemStatus{CTS: true, DSR: true, RI: true, DCD: true, RTS: true, DTR: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modemStatusFromBits(tt.bits); got != tt.expected {
				t.Errorf("modemStatusFromBits(%#x) = %+v, want %+v", tt.bits, got, tt.expected)
			}
		})
	}
}

func TestPollTimeout(t *testing.T) {
	ms, ok := pollTimeout(context.Background(), time.Time{})
	if !ok || ms != -1 {
		t.Errorf("Expected infinite timeout, got %d (ok=%v)", ms, ok)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ms, ok = pollTimeout(ctx, time.Time{})
	if !ok || ms != int(pollInterval/time.Millisecond) {
		t.Errorf("Expected poll interval, got %d (ok=%v)", ms, ok)
	}

	ms, ok = pollTimeout(context.Background(), time.Now().Add(20*time.Millisecond))
	if !ok || ms <= 0 || ms > 20 {
		t.Errorf("Expected at most 20ms, got %d (ok=%v)", ms, ok)
	}

	if _, ok = pollTimeout(context.Background(), time.Now().Add(-time.Second)); ok {
		t.Error("Expected expired deadline to report !ok")
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	err := NewTermiosTransport().Open(context.Background(), PortOptions{Path: "/dev/nonexistent", BaudRate: 9600})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOpenWithoutPath(t *testing.T) {
	err := NewTermiosTransport().Open(context.Background(), PortOptions{BaudRate: 9600})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestUnopenedTransport(t *testing.T) {
	tr := NewTermiosTransport()
	if tr.IsOpen() {
		t.Error("Expected new transport to be closed")
	}
	if _, err := tr.Read(context.Background(), make([]byte, 1)); err != ErrPortNotOpen {
		t.Errorf("Expected ErrPortNotOpen from Read, got %v", err)
	}
	if err := tr.Close(); err != ErrPortNotOpen {
		t.Errorf("Expected ErrPortNotOpen from Close, got %v", err)
	}
}

func TestTermiosReadWrite(t *testing.T) {
	master, path := openPTY(t)
	tr := openTermios(t, path, nil)

	if _, err := master.Write([]byte("hello")); err != nil {
		t.Fatalf("master write failed: %v", err)
	}

	buf := make([]byte, 64)
	got := 0
	for got < 5 {
		n, err := tr.Read(context.Background(), buf[got:])
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		got += n
	}
	if string(buf[:got]) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", buf[:got])
	}

	n, err := tr.Write(context.Background(), []byte("pong"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes written, got %d", n)
	}
	if echoed := readFull(t, master, 4); string(echoed) != "pong" {
		t.Errorf("Expected master to read %q, got %q", "pong", echoed)
	}
}

func TestTermiosCloseCancelsPendingRead(t *testing.T) {
	_, path := openPTY(t)
	tr := openTermios(t, path, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.Read(context.Background(), make([]byte, 16))
		errCh <- err
	}()

	// Give the reader time to block in poll
	time.Sleep(50 * time.Millisecond)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if tr.IsOpen() {
		t.Error("Expected transport to report closed")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("Expected ErrCanceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock pending read")
	}
}

func TestTermiosReadTimeout(t *testing.T) {
	_, path := openPTY(t)
	tr := openTermios(t, path, func(o *PortOptions) { o.ReadTimeout = 50 * time.Millisecond })

	start := time.Now()
	n, err := tr.Read(context.Background(), make([]byte, 8))
	if err != nil {
		t.Fatalf("Expected timeout without error, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 bytes, got %d", n)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Read returned too early: %v", elapsed)
	}
}

func TestTermiosReadContextCancel(t *testing.T) {
	_, path := openPTY(t)
	tr := openTermios(t, path, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := tr.Read(ctx, make([]byte, 8))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if !tr.IsOpen() {
		t.Error("Context expiry must not close the port")
	}
}

func TestTermiosClosedOperations(t *testing.T) {
	_, path := openPTY(t)
	tr := openTermios(t, path, nil)
	ctx := context.Background()

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tr.Close(); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed on second Close, got %v", err)
	}
	if _, err := tr.Read(ctx, make([]byte, 1)); err != ErrCanceled {
		t.Errorf("Expected ErrCanceled from Read, got %v", err)
	}
	if _, err := tr.Write(ctx, []byte("x")); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed from Write, got %v", err)
	}
	if err := tr.Flush(ctx); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed from Flush, got %v", err)
	}
	if err := tr.Drain(ctx); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed from Drain, got %v", err)
	}
	if _, err := tr.Get(ctx); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed from Get, got %v", err)
	}
	if err := tr.Update(ctx, UpdateOptions{BaudRate: 9600}); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed from Update, got %v", err)
	}
}

func TestTermiosUpdateAndFlush(t *testing.T) {
	_, path := openPTY(t)
	tr := openTermios(t, path, nil)
	ctx := context.Background()

	if err := tr.Update(ctx, UpdateOptions{BaudRate: 9600}); err != nil {
		t.Errorf("Update failed: %v", err)
	}
	if err := tr.Update(ctx, UpdateOptions{BaudRate: 12345}); err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
	if err := tr.Flush(ctx); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
	if err := tr.Open(ctx, PortOptions{Path: path, BaudRate: 9600}); err != ErrPortAlreadyOpen {
		t.Errorf("Expected ErrPortAlreadyOpen, got %v", err)
	}
}

func TestSessionOverPTY(t *testing.T) {
	master, path := openPTY(t)
	ctx := context.Background()

	s, err := Open(ctx, WithPath(path), WithReadSize(12))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	payload := []byte("0123456789AB")
	if _, err := master.Write(payload); err != nil {
		t.Fatalf("master write failed: %v", err)
	}

	var got []byte
	for len(got) < len(payload) {
		res, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if res.End {
			t.Fatal("Unexpected end of sequence")
		}
		if len(res.Data) > 12 {
			t.Fatalf("Next returned %d bytes, more than read size", len(res.Data))
		}
		got = append(got, res.Data...)
	}
	if string(got) != string(payload) {
		t.Errorf("Expected %q, got %q", payload, got)
	}

	done := make(chan ReadResult, 1)
	go func() {
		res, err := s.Next(ctx)
		if err != nil {
			t.Errorf("pending Next failed: %v", err)
		}
		done <- res
	}()

	time.Sleep(50 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case res := <-done:
		if !res.End {
			t.Errorf("Expected end of sequence after Close, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock pending Next")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}
