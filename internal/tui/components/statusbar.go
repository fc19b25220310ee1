package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/tui/colors"
	"github.com/allbin/serialstream/internal/tui/styles"
)

type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateClosed
	StateFailed
)

// StatusBar is the single-line bar at the bottom of the listen view
type StatusBar struct {
	portPath string
	opts     serialstream.PortOptions
	state    ConnState
	err      error
	modem    *serialstream.ModemStatus
	rxBytes  int64
	txBytes  int64
	width    int
}

func NewStatusBar(portPath string, opts serialstream.PortOptions) *StatusBar {
	return &StatusBar{portPath: portPath, opts: opts}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnected() {
	sb.state = StateConnected
	sb.err = nil
}

// SetClosed marks the port closed; err is nil for a normal end of stream
func (sb *StatusBar) SetClosed(err error) {
	sb.err = err
	if err != nil {
		sb.state = StateFailed
	} else {
		sb.state = StateClosed
	}
}

func (sb *StatusBar) State() ConnState {
	return sb.state
}

func (sb *StatusBar) SetModemStatus(status serialstream.ModemStatus) {
	sb.modem = &status
}

func (sb *StatusBar) AddRX(n int) { sb.rxBytes += int64(n) }
func (sb *StatusBar) AddTX(n int) { sb.txBytes += int64(n) }

// LineSettings formats the framing like 115200 8N1 RTS/CTS
func LineSettings(opts serialstream.PortOptions) string {
	s := fmt.Sprintf("%d %d%s%d", opts.BaudRate, opts.DataBits, parityLetter(opts.Parity), opts.StopBits)
	if opts.FlowControl == serialstream.FlowControlRTSCTS {
		s += " RTS/CTS"
	}
	return s
}

func parityLetter(p serialstream.Parity) string {
	switch p {
	case serialstream.ParityEven:
		return "E"
	case serialstream.ParityOdd:
		return "O"
	case serialstream.ParityMark:
		return "M"
	case serialstream.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// modemLine renders the modem lines, uppercase when asserted
func modemLine(m serialstream.ModemStatus) string {
	lines := []struct {
		name string
		on   bool
	}{
		{"cts", m.CTS}, {"dsr", m.DSR}, {"dcd", m.DCD}, {"ri", m.RI}, {"rts", m.RTS}, {"dtr", m.DTR},
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.on {
			parts = append(parts, strings.ToUpper(l.name))
		} else {
			parts = append(parts, l.name)
		}
	}
	return strings.Join(parts, " ")
}

// Render draws the bar. sendMode is shown only in insert mode.
func (sb *StatusBar) Render(insert bool, sendMode string, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeText := "NORMAL"
	if insert {
		modeText = "INSERT"
	}
	mode := styles.ModeStyle(insert).Render(modeText)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	var indicator string
	switch sb.state {
	case StateConnected:
		indicator = lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	case StateConnecting:
		indicator = lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	case StateFailed:
		indicator = lipgloss.NewStyle().Foreground(colors.Red).Render("✗ " + sb.err.Error())
	default:
		indicator = lipgloss.NewStyle().Foreground(colors.Red).Render("○ closed")
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, indicator}
	if insert {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	info := fmt.Sprintf("⚡ %s  rx %d tx %d", LineSettings(sb.opts), sb.rxBytes, sb.txBytes)
	if sb.modem != nil {
		info += "  " + modemLine(*sb.modem)
	}
	details := lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1).Render(info)
	clock := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1).Render(timestamp)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
