// Package tui is a terminal front end for one conversation session.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"trustmed/core"
	"trustmed/events/chat"
	"trustmed/events/stt"
	"trustmed/events/tts"
	"trustmed/utils/text"
)

// Conversation is the subset of the orchestrator the terminal drives.
type Conversation interface {
	Submit(raw string) bool
	SetPendingInput(s string)
	ReplayMessage(index int) error
	StopSpeaking()
	ToggleTTSMode() text.SpeechMode
	ToggleSources(index int) error
	ToggleDisclaimer(index int) error
	Reset()
	ToggleMic() error
	HandleUserGesture()
}

type Config struct {
	Title        string
	Conversation Conversation
}

const (
	minViewportWidth = 40
	chromeLines      = 7 // title, blank, status, notice, input, help, spacing
)

type model struct {
	config Config

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	messages  []core.Message
	loading   bool
	mode      string
	playback  string
	listening bool
	notice    string
	errorMsg  string

	gestured bool
	quitting bool
	width    int
	height   int
}

// New returns a tea.Model bound to config.Conversation.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	if config.Title == "" {
		config.Title = "TrustMedAI"
	}

	input := textinput.New()
	input.Placeholder = "Ask a question…"
	input.CharLimit = 500
	input.Width = 70
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	vp := viewport.New(80, 20)

	return &model{
		config:   config,
		input:    input,
		spinner:  spin,
		viewport: vp,
		mode:     string(text.SpeechModeSummary),
		playback: "idle",
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionEventMsg:
		return m, m.handleEvent(msg.event)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyQuit || key == KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	// The first key press is the gesture that unlocks audio.
	if !m.gestured {
		m.gestured = true
		m.config.Conversation.HandleUserGesture()
	}

	conv := m.config.Conversation
	switch key {
	case KeySubmit:
		m.errorMsg = ""
		if conv.Submit(m.input.Value()) {
			m.input.SetValue("")
		} else if m.loading {
			m.notice = "Still waiting for the previous answer."
		}
		return m, nil
	case KeyReplay:
		m.report(conv.ReplayMessage(m.lastAssistant()))
		return m, nil
	case KeyStop:
		conv.StopSpeaking()
		return m, nil
	case KeyToggleMode:
		m.mode = string(conv.ToggleTTSMode())
		return m, nil
	case KeyToggleSources:
		m.report(conv.ToggleSources(m.lastAssistant()))
		return m, nil
	case KeyToggleDisclaimer:
		m.report(conv.ToggleDisclaimer(m.lastAssistant()))
		return m, nil
	case KeyReset:
		m.notice = ""
		m.errorMsg = ""
		conv.Reset()
		return m, nil
	case KeyMic:
		// Without an engine the session raises a capability notice.
		if err := conv.ToggleMic(); err != nil && !errors.Is(err, core.ErrCapabilityUnavailable) {
			m.errorMsg = err.Error()
		}
		return m, nil
	case KeyScrollUp, KeyScrollDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		conv.SetPendingInput(after)
	}
	return m, cmd
}

func (m *model) handleEvent(event core.IEvent) tea.Cmd {
	switch ev := event.(type) {
	case *chat.TranscriptChangedEvent:
		m.messages = ev.Messages
		m.refreshViewport()
	case *chat.LoadingChangedEvent:
		wasLoading := m.loading
		m.loading = ev.Loading
		if ev.Loading && !wasLoading {
			m.notice = ""
			return m.spinner.Tick
		}
	case *chat.PendingInputChangedEvent:
		if ev.Text != m.input.Value() {
			m.input.SetValue(ev.Text)
			m.input.CursorEnd()
		}
	case *chat.TTSModeChangedEvent:
		m.mode = ev.Mode
	case *tts.PlaybackStateChangedEvent:
		m.playback = ev.State
	case *stt.RecognitionStateChangedEvent:
		m.listening = ev.Listening
	case *core.CapabilityNoticeEvent:
		m.notice = ev.Message
	case *core.WarningEvent:
		m.errorMsg = ev.Error
	}
	return nil
}

func (m *model) report(err error) {
	if err != nil {
		m.errorMsg = err.Error()
		return
	}
	m.errorMsg = ""
}

// lastAssistant returns the index of the newest assistant message, or -1.
func (m *model) lastAssistant() int {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].IsAssistant() {
			return i
		}
	}
	return -1
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	w := width - 2
	if w < minViewportWidth {
		w = minViewportWidth
	}
	h := height - chromeLines
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	m.viewport.SetContent(renderTranscript(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *model) statusLine() string {
	parts := []string{
		fmt.Sprintf("voice %s", m.mode),
		fmt.Sprintf("audio %s", m.playback),
	}
	if m.listening {
		parts = append(parts, "listening")
	}
	return statusBarStyle.Render(strings.Join(parts, "  •  "))
}
