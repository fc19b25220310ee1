package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/serialstream/internal/hexutil"
	"github.com/allbin/serialstream/internal/tui/colors"
	"github.com/allbin/serialstream/internal/tui/styles"
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

const maxHistory = 100

// Input is the line editor used in insert mode, with history and an
// ASCII/hex sending mode.
type Input struct {
	textInput    textinput.Model
	sendingMode  SendingMode
	lineEnding   string
	history      []string
	historyIndex int
	// draft holds the unsent line while browsing history
	draft string
	width int
}

// NewInput creates an input in ASCII mode. lineEnding is appended to ASCII
// lines when they are sent.
func NewInput(lineEnding string) *Input {
	ti := textinput.New()
	ti.Placeholder = "Type message and press Enter to send..."
	ti.CharLimit = 256
	ti.Prompt = ""

	return &Input{
		textInput:    ti,
		lineEnding:   lineEnding,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border(2) + padding(2) + prompt(2)
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) Reset() {
	i.textInput.Reset()
}

func (i *Input) ToggleSendingMode() {
	switch i.sendingMode {
	case SendingModeASCII:
		i.sendingMode = SendingModeHex
		i.textInput.Placeholder = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
	default:
		i.sendingMode = SendingModeASCII
		i.textInput.Placeholder = "Type message and press Enter to send..."
	}
}

func (i *Input) SendingMode() SendingMode {
	return i.sendingMode
}

// Payload converts the current line into the bytes to send
func (i *Input) Payload() ([]byte, error) {
	value := i.textInput.Value()
	if i.sendingMode == SendingModeHex {
		return hexutil.Parse(value)
	}
	return []byte(value + i.lineEnding), nil
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

func (i *Input) View(insert bool) string {
	symbol, color := ">", colors.Green
	if i.sendingMode == SendingModeHex {
		symbol, color = "#", colors.Yellow
	}
	prompt := lipgloss.NewStyle().Foreground(color).Bold(true).Render(symbol)

	var content string
	if insert {
		content = i.textInput.View()
	} else {
		content = lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Render("Press 'i' to enter insert mode")
	}

	style := styles.InputStyle.
		Width(max(i.width-4, 10)).
		AlignHorizontal(lipgloss.Left)
	if insert {
		style = style.BorderForeground(colors.Green)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", content))
}

// AddToHistory records a sent line, skipping blanks and repeats
func (i *Input) AddToHistory(line string) {
	line = strings.TrimSpace(line)
	i.historyIndex = -1
	i.draft = ""
	if line == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == line {
		return
	}

	i.history = append(i.history, line)
	if len(i.history) > maxHistory {
		i.history = i.history[1:]
	}
}

func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}

	if i.historyIndex == -1 {
		i.draft = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.draft)
	i.draft = ""
}
