package serialstream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"go.uber.org/zap"
)

// Sequence is a lazy, pull-based sequence of received chunks.
// Next and NextN may be mixed freely with ranging over Chunks.
type Sequence interface {
	Next(ctx context.Context) (ReadResult, error)
	NextN(ctx context.Context, size int) (ReadResult, error)
	Chunks(ctx context.Context) iter.Seq2[[]byte, error]
}

// ReadResult is the outcome of one Next call. When End is true Data is nil
// and the sequence is exhausted for good.
type ReadResult struct {
	Data []byte
	End  bool
}

type readKind int

const (
	readData readKind = iota
	readCanceled
	readFault
)

// readOutcome classifies a single transport read
type readOutcome struct {
	kind readKind
	data []byte
	err  error
}

// Session wraps exactly one Transport and exposes it as a Sequence plus
// pass-through control operations.
//
// A Session keeps no open/closed state of its own; IsOpen always asks the
// Transport. Only one read may be in flight at a time: a concurrent Next
// fails with ErrReadInProgress. Close may be called from another goroutine
// while a read is pending, which ends the sequence.
type Session struct {
	transport Transport
	readSize  int
	logger    *zap.Logger
	reading   atomic.Bool
}

// Ensure Session implements Sequence at compile time
var _ Sequence = (*Session)(nil)

// Open creates the configured Transport, opens it and wraps it in a Session.
// Open failures are returned unchanged and no Session is created.
func Open(ctx context.Context, opts ...Option) (*Session, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	transport := config.Bindings()
	if transport == nil {
		return nil, fmt.Errorf("%w: bindings returned no transport", ErrInvalidConfig)
	}
	if err := transport.Open(ctx, config.Port); err != nil {
		config.Logger.Debug("open failed", zap.String("path", config.Port.Path), zap.Error(err))
		return nil, err
	}

	config.Logger.Debug("port opened",
		zap.String("path", config.Port.Path),
		zap.Int("baud", config.Port.BaudRate),
		zap.Int("read_size", config.ReadSize))

	return &Session{
		transport: transport,
		readSize:  config.ReadSize,
		logger:    config.Logger,
	}, nil
}

// ReadSize returns the default chunk size used by Next
func (s *Session) ReadSize() int {
	return s.readSize
}

// IsOpen reports whether the underlying Transport is open
func (s *Session) IsOpen() bool {
	return s.transport.IsOpen()
}

// Next reads up to ReadSize bytes
func (s *Session) Next(ctx context.Context) (ReadResult, error) {
	return s.NextN(ctx, s.readSize)
}

// NextN reads up to size bytes. It returns fewer bytes (possibly zero)
// whenever that is all the Transport had; zero bytes is not the end of the
// sequence. A closed port or a read canceled by Close yields End.
//
// When Close cancels a read that had already received bytes, those bytes are
// returned as data with End false. The port is closed by then, so the next
// call returns End.
func (s *Session) NextN(ctx context.Context, size int) (ReadResult, error) {
	if size <= 0 {
		return ReadResult{}, ErrInvalidReadSize
	}
	if !s.reading.CompareAndSwap(false, true) {
		return ReadResult{}, ErrReadInProgress
	}
	defer s.reading.Store(false)

	if !s.transport.IsOpen() {
		s.logger.Debug("next: port is closed")
		return ReadResult{End: true}, nil
	}

	out := s.read(ctx, size)
	switch out.kind {
	case readCanceled:
		s.logger.Debug("next: read canceled")
		return ReadResult{End: true}, nil
	case readFault:
		s.logger.Debug("next: read error", zap.Error(out.err))
		return ReadResult{}, out.err
	default:
		s.logger.Debug("next: read bytes", zap.Int("bytes", len(out.data)))
		return ReadResult{Data: out.data}, nil
	}
}

// read issues one transport read into a fresh buffer of exactly size bytes
func (s *Session) read(ctx context.Context, size int) readOutcome {
	buf := make([]byte, size)

	s.logger.Debug("next: read starting", zap.Int("size", size))
	n, err := s.transport.Read(ctx, buf)
	if err != nil && !errors.Is(err, ErrCanceled) {
		return readOutcome{kind: readFault, err: err}
	}
	if n < 0 || n > size {
		return readOutcome{kind: readFault, err: fmt.Errorf("%w: %d of %d", ErrInvalidRead, n, size)}
	}

	if err == nil {
		return readOutcome{kind: readData, data: buf[:n]}
	}
	// Bytes that arrived before the cancel are still delivered; the next
	// call sees the closed port.
	if n > 0 {
		return readOutcome{kind: readData, data: buf[:n]}
	}
	return readOutcome{kind: readCanceled}
}

// Chunks returns an iterator over Next results. It stops after End, and a
// read error is yielded once as (nil, err) before stopping.
func (s *Session) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			res, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if res.End {
				return
			}
			if !yield(res.Data, nil) {
				return
			}
		}
	}
}

// Write transmits data through the Transport
func (s *Session) Write(ctx context.Context, data []byte) (int, error) {
	return s.transport.Write(ctx, data)
}

// Close closes the Transport, ending the sequence and canceling any pending
// read. Closing an already closed Session is a no-op.
func (s *Session) Close() error {
	if !s.transport.IsOpen() {
		return nil
	}
	if err := s.transport.Close(); err != nil && !errors.Is(err, ErrPortClosed) {
		return err
	}
	s.logger.Debug("port closed")
	return nil
}

// Update reconfigures the open port, e.g. its baud rate
func (s *Session) Update(ctx context.Context, opts UpdateOptions) error {
	return s.transport.Update(ctx, opts)
}

// Set drives the output control lines
func (s *Session) Set(ctx context.Context, lines ControlLines) error {
	return s.transport.Set(ctx, lines)
}

// Get returns the current modem status lines
func (s *Session) Get(ctx context.Context) (ModemStatus, error) {
	return s.transport.Get(ctx)
}

// Flush discards unread input and unwritten output
func (s *Session) Flush(ctx context.Context) error {
	return s.transport.Flush(ctx)
}

// Drain waits until all written output has been transmitted
func (s *Session) Drain(ctx context.Context) error {
	return s.transport.Drain(ctx)
}
