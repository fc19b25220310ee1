package serialstream

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrPortNotOpen      = errors.New("serial port has not been opened")
	ErrPortAlreadyOpen  = errors.New("serial port is already open")
	ErrNotSupported     = errors.New("operation not supported by transport")
	ErrDeviceHangup     = errors.New("serial device hung up")

	// ErrCanceled is returned by a Transport read that was interrupted by Close.
	// Session converts it into end-of-sequence.
	ErrCanceled = errors.New("serial read canceled")

	// Session errors
	ErrInvalidReadSize = errors.New("read size must be a positive integer")
	ErrReadInProgress  = errors.New("another read is already in progress")
	ErrInvalidRead     = errors.New("transport reported an invalid read count")
)
