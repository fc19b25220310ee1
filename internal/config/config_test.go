package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allbin/serialstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serialstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
port:
  driver: bugst
  baud_rate: 9600
  parity: even
  flow_control: rtscts
  read_size: 64
  read_timeout: 250ms
  initial_dtr: low
log:
  level: debug
  format: json
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "bugst", cfg.Port.Driver)
	assert.Equal(t, 9600, cfg.Port.BaudRate)
	assert.Equal(t, 8, cfg.Port.DataBits)
	assert.Equal(t, "even", cfg.Port.Parity)
	assert.Equal(t, 64, cfg.Port.ReadSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Port.ReadTimeout)
	assert.Equal(t, "low", cfg.Port.InitialDTR)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "port:\n  baud_rate: 9600\n")
	t.Setenv("SERIALSTREAM_PORT_BAUD_RATE", "57600")
	t.Setenv("SERIALSTREAM_LOG_LEVEL", "error")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Port.BaudRate)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"driver", "port:\n  driver: serialport\n"},
		{"parity", "port:\n  parity: sideways\n"},
		{"flow control", "port:\n  flow_control: xonxoff\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(New(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseParity(t *testing.T) {
	tests := []struct {
		input    string
		expected serialstream.Parity
	}{
		{"", serialstream.ParityNone},
		{"none", serialstream.ParityNone},
		{"O", serialstream.ParityOdd},
		{"even", serialstream.ParityEven},
		{"mark", serialstream.ParityMark},
		{"s", serialstream.ParitySpace},
	}
	for _, tt := range tests {
		got, err := ParseParity(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}

	_, err := ParseParity("x")
	assert.Error(t, err)
}

func TestParseFlowControl(t *testing.T) {
	fc, err := ParseFlowControl("RTSCTS")
	require.NoError(t, err)
	assert.Equal(t, serialstream.FlowControlRTSCTS, fc)

	fc, err = ParseFlowControl("none")
	require.NoError(t, err)
	assert.Equal(t, serialstream.FlowControlNone, fc)

	_, err = ParseFlowControl("cts")
	assert.Error(t, err)
}

func TestParseSignalState(t *testing.T) {
	for _, s := range []string{"high", "ON", "true", "1"} {
		state, err := ParseSignalState(s)
		require.NoError(t, err)
		assert.True(t, state, s)
	}
	for _, s := range []string{"low", "off", "FALSE", "0"} {
		state, err := ParseSignalState(s)
		require.NoError(t, err)
		assert.False(t, state, s)
	}
	_, err := ParseSignalState("maybe")
	assert.Error(t, err)
}

func TestPortOptions(t *testing.T) {
	pc := Default().Port
	pc.BaudRate = 9600
	pc.Parity = "odd"
	pc.ReadSize = 32
	pc.ReadTimeout = 100 * time.Millisecond
	pc.InitialRTS = "high"
	pc.Exclusive = true
	pc.SyncWrite = true

	opts, err := pc.Options("/dev/ttyUSB0")
	require.NoError(t, err)

	cfg := serialstream.DefaultConfig()
	for _, opt := range opts {
		require.NoError(t, opt(&cfg))
	}
	assert.Equal(t, "/dev/ttyUSB0", cfg.Port.Path)
	assert.Equal(t, 9600, cfg.Port.BaudRate)
	assert.Equal(t, serialstream.ParityOdd, cfg.Port.Parity)
	assert.Equal(t, 32, cfg.ReadSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Port.ReadTimeout)
	require.NotNil(t, cfg.Port.InitialRTS)
	assert.True(t, *cfg.Port.InitialRTS)
	assert.Nil(t, cfg.Port.InitialDTR)
	assert.True(t, cfg.Port.Exclusive)
	assert.Equal(t, serialstream.WriteModeSynced, cfg.Port.WriteMode)

	pc.InitialDTR = "sideways"
	_, err = pc.Options("/dev/ttyUSB0")
	assert.Error(t, err)

	pc.InitialDTR = ""
	pc.Driver = "nope"
	_, err = pc.Options("/dev/ttyUSB0")
	assert.Error(t, err)
}
