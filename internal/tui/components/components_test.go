package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/allbin/serialstream"
)

func TestFormatterModes(t *testing.T) {
	entry := Entry{
		Time: time.Date(2025, 1, 2, 3, 4, 5, 6e6, time.UTC),
		Data: []byte("Hi\n"),
	}

	tests := []struct {
		name     string
		mode     DisplayMode
		contains []string
		excludes []string
	}{
		{
			name:     "default",
			mode:     DefaultDisplayMode(),
			contains: []string{"[03:04:05.006]", "HEX: 48 69 0A", "ASCII: Hi."},
			excludes: []string{"RX"},
		},
		{
			name:     "ascii only",
			mode:     DisplayMode{ShowASCII: true},
			contains: []string{"ASCII: Hi."},
			excludes: []string{"HEX", "03:04:05"},
		},
		{
			name:     "byte count",
			mode:     DisplayMode{ShowIndicators: true},
			contains: []string{"BYTES: 3", "RX"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFormatter(tt.mode).Format(entry)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() = %q, expected to contain %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() = %q, expected not to contain %q", got, s)
				}
			}
		})
	}
}

func TestFormatterWriteError(t *testing.T) {
	f := NewFormatter(DisplayMode{ShowASCII: true})
	got := f.Format(Entry{Data: []byte("x"), Dir: DirectionTX, Err: errors.New("port closed")})
	if !strings.Contains(got, "TX") || !strings.Contains(got, "port closed") {
		t.Errorf("Expected TX error line, got %q", got)
	}
}

func TestTerminalCapsEntries(t *testing.T) {
	term := NewTerminal(80, 10, DisplayMode{ShowASCII: true})
	for i := 0; i < MaxEntries+10; i++ {
		term.Append(Entry{Data: []byte{byte('a' + i%26)}})
	}
	if got := len(term.Entries()); got != MaxEntries {
		t.Fatalf("Expected %d entries, got %d", MaxEntries, got)
	}
	if first := term.Entries()[0].Data[0]; first != byte('a'+10%26) {
		t.Errorf("Expected oldest entries dropped, first is %q", first)
	}

	term.Clear()
	if len(term.Entries()) != 0 {
		t.Error("Expected Clear to drop all entries")
	}
}

func TestTerminalFollow(t *testing.T) {
	term := NewTerminal(80, 2, DisplayMode{ShowASCII: true})
	for i := 0; i < 10; i++ {
		term.Append(Entry{Data: []byte("line")})
	}
	if !term.Following() {
		t.Fatal("Expected terminal to follow new entries")
	}

	term.GotoTop()
	if term.Following() {
		t.Error("Expected scrolling up to stop following")
	}
	term.GotoBottom()
	if !term.Following() {
		t.Error("Expected GotoBottom to resume following")
	}
}

func TestInputPayload(t *testing.T) {
	in := NewInput("\r\n")
	in.SetValue("AT")
	data, err := in.Payload()
	if err != nil || string(data) != "AT\r\n" {
		t.Errorf("Expected %q, got %q (err %v)", "AT\r\n", data, err)
	}

	in.ToggleSendingMode()
	if in.SendingMode() != SendingModeHex {
		t.Fatal("Expected hex mode")
	}
	in.SetValue("0x41 42")
	data, err = in.Payload()
	if err != nil || string(data) != "AB" {
		t.Errorf("Expected %q, got %q (err %v)", "AB", data, err)
	}

	in.SetValue("4")
	if _, err := in.Payload(); err == nil {
		t.Error("Expected error for odd-length hex")
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput("")
	in.AddToHistory("one")
	in.AddToHistory("two")
	in.AddToHistory("two")
	in.AddToHistory("  ")

	in.SetValue("draft")
	in.HistoryUp()
	if in.Value() != "two" {
		t.Errorf("Expected %q, got %q", "two", in.Value())
	}
	in.HistoryUp()
	in.HistoryUp()
	if in.Value() != "one" {
		t.Errorf("Expected %q, got %q", "one", in.Value())
	}
	in.HistoryDown()
	if in.Value() != "two" {
		t.Errorf("Expected %q, got %q", "two", in.Value())
	}
	in.HistoryDown()
	if in.Value() != "draft" {
		t.Errorf("Expected draft restored, got %q", in.Value())
	}
}

func TestLineSettings(t *testing.T) {
	tests := []struct {
		opts     serialstream.PortOptions
		expected string
	}{
		{serialstream.PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1}, "115200 8N1"},
		{serialstream.PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: serialstream.ParityEven}, "9600 7E2"},
		{
			serialstream.PortOptions{BaudRate: 57600, DataBits: 8, StopBits: 1, FlowControl: serialstream.FlowControlRTSCTS},
			"57600 8N1 RTS/CTS",
		},
	}

	for _, tt := range tests {
		if got := LineSettings(tt.opts); got != tt.expected {
			t.Errorf("LineSettings(%+v) = %q, expected %q", tt.opts, got, tt.expected)
		}
	}
}

func TestStatusBarRender(t *testing.T) {
	sb := NewStatusBar("/dev/ttyUSB0", serialstream.PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1})
	sb.SetWidth(140)
	sb.SetConnected()
	sb.AddRX(12)
	sb.SetModemStatus(serialstream.ModemStatus{CTS: true})

	out := sb.Render(true, "HEX", "12:00:00")
	for _, s := range []string{"INSERT", "/dev/ttyUSB0", "[HEX]", "115200 8N1", "rx 12", "CTS dsr"} {
		if !strings.Contains(out, s) {
			t.Errorf("Render() missing %q in %q", s, out)
		}
	}

	sb.SetClosed(errors.New("hangup"))
	if sb.State() != StateFailed {
		t.Errorf("Expected StateFailed, got %v", sb.State())
	}
	if !strings.Contains(sb.Render(false, "ASCII", ""), "hangup") {
		t.Error("Expected error in status bar")
	}
}
