package serialstream

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ReadSize != 1024 {
		t.Errorf("Expected ReadSize 1024, got %d", config.ReadSize)
	}

	if config.Bindings == nil {
		t.Error("Expected default Bindings")
	}

	if config.Logger == nil {
		t.Error("Expected default Logger")
	}

	if config.Port.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.Port.BaudRate)
	}

	if config.Port.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.Port.DataBits)
	}

	if config.Port.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.Port.StopBits)
	}

	if config.Port.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Port.Parity)
	}

	if config.Port.FlowControl != FlowControlNone {
		t.Errorf("Expected FlowControl None, got %v", config.Port.FlowControl)
	}

	if config.Port.ReadTimeout != 0 {
		t.Errorf("Expected ReadTimeout 0, got %v", config.Port.ReadTimeout)
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	opts := []Option{
		WithPath("/dev/ttyUSB0"),
		WithReadSize(12),
		WithBaudRate(9600),
		WithDataBits(7),
		WithStopBits(2),
		WithParity(ParityEven),
		WithFlowControl(FlowControlRTSCTS),
		WithSyncWrite(),
		WithInitialRTS(true),
		WithInitialDTR(false),
		WithExclusive(),
		WithBindings(BugstBindings),
	}
	for i, opt := range opts {
		if err := opt(&config); err != nil {
			t.Fatalf("option %d failed: %v", i, err)
		}
	}

	if config.Port.Path != "/dev/ttyUSB0" {
		t.Errorf("Expected Path /dev/ttyUSB0, got %s", config.Port.Path)
	}
	if config.ReadSize != 12 {
		t.Errorf("Expected ReadSize 12, got %d", config.ReadSize)
	}
	if config.Port.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.Port.BaudRate)
	}
	if config.Port.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.Port.DataBits)
	}
	if config.Port.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.Port.StopBits)
	}
	if config.Port.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Port.Parity)
	}
	if config.Port.FlowControl != FlowControlRTSCTS {
		t.Errorf("Expected FlowControl RTSCTS, got %v", config.Port.FlowControl)
	}
	if config.Port.WriteMode != WriteModeSynced {
		t.Errorf("Expected WriteMode Synced, got %v", config.Port.WriteMode)
	}
	if config.Port.InitialRTS == nil || !*config.Port.InitialRTS {
		t.Error("Expected InitialRTS true")
	}
	if config.Port.InitialDTR == nil || *config.Port.InitialDTR {
		t.Error("Expected InitialDTR false")
	}
	if !config.Port.Exclusive {
		t.Error("Expected Exclusive")
	}
	if _, ok := config.Bindings().(*BugstTransport); !ok {
		t.Errorf("Expected BugstTransport, got %T", config.Bindings())
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"baud rate", WithBaudRate(123456), ErrInvalidBaudRate},
		{"data bits", WithDataBits(9), ErrInvalidConfig},
		{"stop bits", WithStopBits(3), ErrInvalidConfig},
		{"parity", WithParity(Parity(42)), ErrInvalidConfig},
		{"flow control", WithFlowControl(FlowControl(7)), ErrInvalidConfig},
		{"zero read size", WithReadSize(0), ErrInvalidReadSize},
		{"negative read size", WithReadSize(-5), ErrInvalidReadSize},
		{"empty path", WithPath(""), ErrInvalidConfig},
		{"nil bindings", WithBindings(nil), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (wait for data)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"150ms (valid)", 150 * time.Millisecond, false},
		{"25600ms (valid)", 25600 * time.Millisecond, false},
		{"250ns (below granularity)", 250 * time.Nanosecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.Port.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.Port.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestWithLoggerNil(t *testing.T) {
	config := DefaultConfig()
	if err := WithLogger(nil)(&config); err != nil {
		t.Fatalf("WithLogger(nil) failed: %v", err)
	}
	if config.Logger == nil {
		t.Error("Expected a no-op logger for nil")
	}
}
