package tui

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"trustmed/core"
	"trustmed/events/chat"
	"trustmed/utils/text"
)

type fakeConversation struct {
	submitted []string
	pending   []string
	replays   []int
	sources   []int
	gestures  int
	stops     int
	resets    int
	mode      text.SpeechMode
	busy      bool
	micErr    error
}

func (f *fakeConversation) Submit(raw string) bool {
	if strings.TrimSpace(raw) == "" || f.busy {
		return false
	}
	f.submitted = append(f.submitted, strings.TrimSpace(raw))
	return true
}

func (f *fakeConversation) SetPendingInput(s string) { f.pending = append(f.pending, s) }
func (f *fakeConversation) ReplayMessage(index int) error { f.replays = append(f.replays, index); return nil }
func (f *fakeConversation) StopSpeaking() { f.stops++ }
func (f *fakeConversation) ToggleDisclaimer(index int) error { return nil }
func (f *fakeConversation) Reset() { f.resets++ }
func (f *fakeConversation) ToggleMic() error { return f.micErr }
func (f *fakeConversation) HandleUserGesture() { f.gestures++ }
func (f *fakeConversation) ToggleSources(index int) error {
	f.sources = append(f.sources, index)
	return nil
}

func (f *fakeConversation) ToggleTTSMode() text.SpeechMode {
	f.mode = f.mode.Toggle()
	return f.mode
}

func newTestModel(t *testing.T) (*model, *fakeConversation) {
	t.Helper()
	conv := &fakeConversation{mode: text.SpeechModeSummary}
	teaModel, ok := New(Config{Conversation: conv}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	teaModel.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return teaModel, conv
}

func typeText(m *model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func transcript(msgs ...core.Message) tea.Msg {
	return EventMsg(&chat.TranscriptChangedEvent{Messages: msgs})
}

func TestFirstKeyIsGesture(t *testing.T) {
	m, conv := newTestModel(t)
	typeText(m, "hi")
	if conv.gestures != 1 {
		t.Fatalf("gestures = %d, want 1", conv.gestures)
	}
	if got := conv.pending; len(got) != 2 || got[1] != "hi" {
		t.Errorf("pending = %q", got)
	}
}

func TestEnterSubmitsAndClears(t *testing.T) {
	m, conv := newTestModel(t)
	typeText(m, "What is A1C?")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(conv.submitted) != 1 || conv.submitted[0] != "What is A1C?" {
		t.Fatalf("submitted = %q", conv.submitted)
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want cleared", m.input.Value())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(conv.submitted) != 1 {
		t.Errorf("blank enter submitted %q", conv.submitted)
	}
}

func TestEnterWhileLoadingShowsNotice(t *testing.T) {
	m, conv := newTestModel(t)
	conv.busy = true
	if _, cmd := m.Update(EventMsg(&chat.LoadingChangedEvent{Loading: true})); cmd == nil {
		t.Error("loading should start the spinner")
	}
	typeText(m, "again")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.View(), "Thinking") {
		t.Error("view does not show the loading indicator")
	}
	if m.notice == "" {
		t.Error("no notice for a rejected submit")
	}
}

func TestTranscriptRendering(t *testing.T) {
	m, _ := newTestModel(t)
	answer := core.NewAssistantMessage("Metformin lowers glucose.", []core.Source{{Source: "ADA", Section: "Pharmacology"}}, "Educational only.")
	m.Update(transcript(core.NewUserMessage("What does metformin do?"), answer))

	view := m.View()
	for _, want := range []string{"What does metformin do?", "Metformin lowers glucose.", "1 source(s) hidden"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "Educational only.") {
		t.Error("disclaimer shown while hidden")
	}

	answer.ShowSources = true
	answer.ShowDisclaimer = true
	m.Update(transcript(core.NewUserMessage("What does metformin do?"), answer))
	view = m.View()
	for _, want := range []string{"ADA / Pharmacology", "Educational only."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

var ansiCodes = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestRenderTranscriptMarkdown(t *testing.T) {
	answer := core.NewAssistantMessage("**Metformin** lowers glucose.\n> ADA says so\n* fewer carbs\n- more walking", nil, "")
	got := ansiCodes.ReplaceAllString(renderTranscript([]core.Message{answer}, 80), "")

	for _, want := range []string{"Metformin lowers glucose.", "│ ADA says so", "• fewer carbs", "• more walking"} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q in\n%s", want, got)
		}
	}
	for _, raw := range []string{"**", "> ADA", "* fewer", "- more"} {
		if strings.Contains(got, raw) {
			t.Errorf("transcript kept raw markup %q in\n%s", raw, got)
		}
	}
}

func TestRenderContentLeavesPlainText(t *testing.T) {
	in := "A1C is 7.0 * 1 today - roughly."
	if got := ansiCodes.ReplaceAllString(renderContent(in), ""); got != in {
		t.Errorf("renderContent(%q) = %q", in, got)
	}
}

func TestShortcutsTargetLastAnswer(t *testing.T) {
	m, conv := newTestModel(t)
	m.Update(transcript(
		core.NewAssistantMessage("Hi.", nil, ""),
		core.NewUserMessage("q"),
		core.NewAssistantMessage("A.", nil, ""),
		core.NewUserMessage("q2"),
	))

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if len(conv.replays) != 1 || conv.replays[0] != 2 {
		t.Errorf("replays = %v, want [2]", conv.replays)
	}
	if len(conv.sources) != 1 || conv.sources[0] != 2 {
		t.Errorf("sources = %v, want [2]", conv.sources)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.mode != string(text.SpeechModeFull) {
		t.Errorf("mode = %q", m.mode)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if conv.stops != 1 || conv.resets != 1 {
		t.Errorf("stops = %d resets = %d", conv.stops, conv.resets)
	}
}

func TestMicCapabilityErrorIsQuiet(t *testing.T) {
	m, conv := newTestModel(t)
	conv.micErr = core.NewCapabilityError(core.CapabilitySpeechRecognition, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.errorMsg != "" {
		t.Errorf("error = %q, want none", m.errorMsg)
	}

	m.Update(EventMsg(&core.CapabilityNoticeEvent{Capability: core.CapabilitySpeechRecognition, Message: "no mic here"}))
	if !strings.Contains(m.View(), "no mic here") {
		t.Error("notice not rendered")
	}

	conv.micErr = errors.New("device busy")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.errorMsg != "device busy" {
		t.Errorf("error = %q", m.errorMsg)
	}
}

func TestPendingInputEventUpdatesInput(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(EventMsg(&chat.PendingInputChangedEvent{Text: "from elsewhere"}))
	if m.input.Value() != "from elsewhere" {
		t.Errorf("input = %q", m.input.Value())
	}
}

func TestEscQuits(t *testing.T) {
	m, conv := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || !m.quitting {
		t.Fatal("esc should quit")
	}
	if conv.gestures != 0 {
		t.Error("quitting counted as a gesture")
	}
	if m.View() != "" {
		t.Error("view not cleared on quit")
	}
}
