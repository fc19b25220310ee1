// Package models contains the bubbletea models behind the interactive
// commands.
package models

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/tui/components"
	"github.com/allbin/serialstream/internal/tui/keys"
	"github.com/allbin/serialstream/internal/tui/styles"
)

// StatusInterval is how often the modem lines are sampled
const StatusInterval = 500 * time.Millisecond

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ChunkMsg carries one non-empty chunk from the session
type ChunkMsg struct {
	Time time.Time
	Data []byte
}

// ReadErrorMsg reports a read failure; reading stops afterwards
type ReadErrorMsg struct {
	Err error
}

// StreamEndMsg is sent once the chunk sequence has ended
type StreamEndMsg struct{}

// WriteResultMsg reports the outcome of a line sent from insert mode
type WriteResultMsg struct {
	Time time.Time
	Data []byte
	N    int
	Err  error
}

// ModemStatusMsg carries a modem status sample
type ModemStatusMsg struct {
	Status serialstream.ModemStatus
	Err    error
}

type controlDoneMsg struct {
	what string
	err  error
}

type statusTickMsg struct{}

// Config holds the listen view settings
type Config struct {
	PortPath string
	Port     serialstream.PortOptions
	Display  components.DisplayMode
	// LineEnding is appended to lines sent in ASCII mode
	LineEnding string
	Logger     *zap.Logger
}

// Listen streams a Session's chunks into a scrolling view and sends lines
// typed in insert mode.
type Listen struct {
	session *serialstream.Session
	cfg     Config
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	msgs   chan tea.Msg

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ListenKeys

	mode     InputMode
	ready    bool
	width    int
	height   int
	notice   string
	rts, dtr bool
}

// NewListen wraps an open session. The caller keeps ownership of the session
// and closes it after the program exits.
func NewListen(s *serialstream.Session, cfg Config) *Listen {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Listen{
		session:   s,
		cfg:       cfg,
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
		msgs:      make(chan tea.Msg, 16),
		terminal:  components.NewTerminal(80, 20, cfg.Display),
		statusBar: components.NewStatusBar(cfg.PortPath, cfg.Port),
		input:     components.NewInput(cfg.LineEnding),
		help:      help.New(),
		keys:      keys.NewListenKeys(),
	}
	m.statusBar.SetConnected()
	return m
}

func (m *Listen) Init() tea.Cmd {
	go m.readLoop()
	return tea.Batch(waitForMsg(m.msgs), m.pollStatus())
}

// Stop cancels reads and writes issued by the model
func (m *Listen) Stop() {
	m.cancel()
}

// readLoop forwards the session's chunks until the sequence ends, a read
// fails, or the model stops.
func (m *Listen) readLoop() {
	defer close(m.msgs)

	for chunk, err := range m.session.Chunks(m.ctx) {
		if err != nil {
			m.send(ReadErrorMsg{Err: err})
			return
		}
		if len(chunk) == 0 {
			continue
		}
		if !m.send(ChunkMsg{Time: time.Now(), Data: chunk}) {
			return
		}
	}
	m.send(StreamEndMsg{})
}

func (m *Listen) send(msg tea.Msg) bool {
	select {
	case m.msgs <- msg:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func waitForMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Listen) pollStatus() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		status, err := s.Get(ctx)
		return ModemStatusMsg{Status: status, Err: err}
	}
}

func (m *Listen) control(what string, lines serialstream.ControlLines) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return controlDoneMsg{what: what, err: s.Set(ctx, lines)}
	}
}

func (m *Listen) flush() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return controlDoneMsg{what: "flush", err: s.Flush(ctx)}
	}
}

func (m *Listen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, m.terminal.Update(msg)

	case ChunkMsg:
		m.terminal.Append(components.Entry{Time: msg.Time, Data: msg.Data, Dir: components.DirectionRX})
		m.statusBar.AddRX(len(msg.Data))
		return m, waitForMsg(m.msgs)

	case StreamEndMsg:
		m.logger.Debug("listen: stream ended")
		m.statusBar.SetClosed(nil)
		return m, nil

	case ReadErrorMsg:
		m.logger.Warn("listen: read failed", zap.Error(msg.Err))
		m.statusBar.SetClosed(msg.Err)
		return m, nil

	case WriteResultMsg:
		m.terminal.Append(components.Entry{Time: msg.Time, Data: msg.Data, Dir: components.DirectionTX, Err: msg.Err})
		m.statusBar.AddTX(msg.N)
		if msg.Err != nil {
			m.logger.Warn("listen: write failed", zap.Error(msg.Err))
		}
		return m, nil

	case ModemStatusMsg:
		if msg.Err != nil {
			// Not every driver can read the lines; stop sampling quietly
			m.logger.Debug("listen: modem status unavailable", zap.Error(msg.Err))
			return m, nil
		}
		m.statusBar.SetModemStatus(msg.Status)
		m.rts, m.dtr = msg.Status.RTS, msg.Status.DTR
		if m.statusBar.State() != components.StateConnected {
			return m, nil
		}
		return m, tea.Tick(StatusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })

	case statusTickMsg:
		if m.statusBar.State() != components.StateConnected {
			return m, nil
		}
		return m, m.pollStatus()

	case controlDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s failed: %v", msg.what, msg.err)
			return m, nil
		}
		m.notice = ""
		return m, m.pollStatus()

	case tea.KeyMsg:
		if m.mode == InputModeInsert {
			return m, m.handleInsertKey(msg)
		}
		return m, m.handleNormalKey(msg)
	}

	return m, nil
}

func (m *Listen) handleInsertKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	case key.Matches(msg, m.keys.Escape):
		m.mode = InputModeNormal
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Send):
		return m.sendLine()
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	case msg.Type == tea.KeyUp:
		m.input.HistoryUp()
		return nil
	case msg.Type == tea.KeyDown:
		m.input.HistoryDown()
		return nil
	}
	return m.input.Update(msg)
}

func (m *Listen) handleNormalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.InsertMode):
		m.mode = InputModeInsert
		return m.input.Focus()
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.Formatter().ToggleHex()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.Formatter().ToggleASCII()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleTimestamps):
		m.terminal.Formatter().ToggleTimestamps()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleIndicators):
		m.terminal.Formatter().ToggleIndicators()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleRTS):
		state := !m.rts
		return m.control("RTS", serialstream.ControlLines{RTS: &state})
	case key.Matches(msg, m.keys.ToggleDTR):
		state := !m.dtr
		return m.control("DTR", serialstream.ControlLines{DTR: &state})
	case key.Matches(msg, m.keys.Flush):
		return m.flush()
	case key.Matches(msg, m.keys.Up):
		m.terminal.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.terminal.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()
	}
	return nil
}

func (m *Listen) quit() tea.Cmd {
	m.cancel()
	return tea.Quit
}

func (m *Listen) sendLine() tea.Cmd {
	data, err := m.input.Payload()
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	m.input.AddToHistory(m.input.Value())
	m.input.Reset()
	if len(data) == 0 {
		return nil
	}

	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		n, err := s.Write(ctx, data)
		return WriteResultMsg{Time: time.Now(), Data: data, N: n, Err: err}
	}
}

func (m *Listen) resize(width, height int) {
	m.width, m.height = width, height
	// border + input box + notice + status bar
	m.terminal.SetSize(width, max(height-6, 1))
	m.input.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.help.Width = width
	m.ready = true
}

func (m *Listen) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	parts := []string{
		styles.ContentBorderStyle.Render(content),
		m.input.View(m.mode == InputModeInsert),
	}
	if m.notice != "" {
		parts = append(parts, styles.ErrorStyle.Render(m.notice))
	}
	if m.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(m.help.View(m.keys)))
	}
	parts = append(parts, m.statusBar.Render(
		m.mode == InputModeInsert,
		m.input.SendingMode().String(),
		time.Now().Format("15:04:05"),
	))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
