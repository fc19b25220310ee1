package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialstream/internal/hexutil"
	"github.com/allbin/serialstream/internal/tui/colors"
	"github.com/allbin/serialstream/internal/tui/styles"
)

// Direction tells received data apart from data we sent
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
)

// Entry is one line in the data view: a received chunk or a write
type Entry struct {
	Time time.Time
	Data []byte
	Dir  Direction
	// Err is set for writes that failed
	Err error
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

// DefaultDisplayMode shows everything except the RX/TX indicators
func DefaultDisplayMode() DisplayMode {
	return DisplayMode{ShowHex: true, ShowASCII: true, ShowTimestamps: true}
}

type Formatter struct {
	mode DisplayMode
}

func NewFormatter(mode DisplayMode) *Formatter {
	return &Formatter{mode: mode}
}

func (f *Formatter) Mode() DisplayMode {
	return f.mode
}

func (f *Formatter) ToggleHex()        { f.mode.ShowHex = !f.mode.ShowHex }
func (f *Formatter) ToggleASCII()      { f.mode.ShowASCII = !f.mode.ShowASCII }
func (f *Formatter) ToggleTimestamps() { f.mode.ShowTimestamps = !f.mode.ShowTimestamps }
func (f *Formatter) ToggleIndicators() { f.mode.ShowIndicators = !f.mode.ShowIndicators }

// Format renders e as a single line
func (f *Formatter) Format(e Entry) string {
	var prefix []string

	if f.mode.ShowTimestamps {
		prefix = append(prefix, styles.TimestampStyle.Render("["+e.Time.Format("15:04:05.000")+"]"))
	}
	if f.mode.ShowIndicators || e.Err != nil {
		prefix = append(prefix, indicator(e))
	}

	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", e.Data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+hexutil.Printable(e.Data))
	}
	if !f.mode.ShowHex && !f.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(e.Data)))
	}
	if e.Err != nil {
		parts = append(parts, styles.ErrorStyle.Render(e.Err.Error()))
	}

	body := strings.Join(parts, "  ")
	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + " " + body
}

func indicator(e Entry) string {
	if e.Dir == DirectionRX {
		return lipgloss.NewStyle().Foreground(colors.Sky).Bold(true).Render("↙ RX")
	}
	if e.Err != nil {
		return lipgloss.NewStyle().Foreground(colors.Red).Bold(true).Render("↗ TX ✗")
	}
	return lipgloss.NewStyle().Foreground(colors.Peach).Bold(true).Render("↗ TX")
}
