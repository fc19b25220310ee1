// Package serialstream exposes a serial port as a lazy sequence of received
// chunks plus the usual control operations, with a precise lifecycle around
// the one read that may be in flight.
//
// # Basic Usage
//
// Open a port (115200 8N1, 1024-byte chunks by default) and pull chunks:
//
//	s, err := serialstream.Open(ctx, serialstream.WithPath("/dev/ttyUSB0"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	// read until the port is closed
//	for chunk, err := range s.Chunks(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("read %d bytes\n", len(chunk))
//	}
//
// Pull a specific number of bytes with NextN. Fewer bytes may come back,
// including zero; only End marks the end of the sequence:
//
//	res, err := s.NextN(ctx, 12)
//	fmt.Printf("read %d bytes / port closed: %v\n", len(res.Data), res.End)
//
// # Closing and Cancellation
//
// Close may be called from any goroutine. A Next blocked in another
// goroutine returns ReadResult{End: true} with a nil error, and every later
// Next does the same without touching the device. Close is idempotent.
//
// Only one Next may be in flight; a concurrent call returns
// ErrReadInProgress.
//
// # Control Operations
//
//	_, err = s.Write(ctx, []byte("hello!"))
//	err = s.Drain(ctx)
//	err = s.Flush(ctx)
//	err = s.Update(ctx, serialstream.UpdateOptions{BaudRate: 9600})
//	rts := true
//	err = s.Set(ctx, serialstream.ControlLines{RTS: &rts})
//	status, err := s.Get(ctx)
//
// These forward to the Transport and return its results unchanged.
//
// # Transports
//
// TermiosBindings (the default) drives a raw Linux tty through
// golang.org/x/sys/unix. BugstBindings uses go.bug.st/serial instead. Any
// type implementing Transport can be plugged in with WithBindings.
//
// # Error Handling
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, serialstream.ErrDeviceNotFound) {
//	    // Handle missing device
//	}
//
// A Transport reports a read interrupted by Close as ErrCanceled; the
// Session turns it into End and never returns it.
package serialstream
