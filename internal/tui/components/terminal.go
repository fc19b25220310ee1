package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// MaxEntries bounds the scrollback kept by a Terminal
const MaxEntries = 5000

// Terminal is a scrolling view of formatted entries. It follows the newest
// entry unless the user scrolled up.
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	entries   []Entry
	lines     []string
	follow    bool
}

func NewTerminal(width, height int, mode DisplayMode) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(mode),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Formatter() *Formatter {
	return t.formatter
}

func (t *Terminal) Entries() []Entry {
	return t.entries
}

func (t *Terminal) Append(e Entry) {
	t.entries = append(t.entries, e)
	t.lines = append(t.lines, t.formatter.Format(e))
	if over := len(t.entries) - MaxEntries; over > 0 {
		t.entries = t.entries[over:]
		t.lines = t.lines[over:]
	}
	t.render()
}

// Refresh re-formats every entry, e.g. after a display mode toggle
func (t *Terminal) Refresh() {
	t.lines = t.lines[:0]
	for _, e := range t.entries {
		t.lines = append(t.lines, t.formatter.Format(e))
	}
	t.render()
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.lines = nil
	t.follow = true
	t.viewport.SetContent("")
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) ScrollUp() {
	t.viewport.LineUp(1)
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) ScrollDown() {
	t.viewport.LineDown(1)
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) GotoTop() {
	t.viewport.GotoTop()
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
	t.follow = true
}

// Following reports whether new entries scroll the view
func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	// Key handling stays with the owning model
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
