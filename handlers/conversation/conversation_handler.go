package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"trustmed/core"
	"trustmed/events/chat"
	"trustmed/events/ui"
	"trustmed/handlers/stt"
	"trustmed/handlers/transcript"
	"trustmed/utils/text"
)

// Orchestrator coordinates one conversation: it owns the loading flag and the
// pending input, writes the transcript and decides what gets spoken.
type Orchestrator struct {
	chat     core.ChatService
	store    *transcript.Store
	speaker  Speaker
	listener Listener
	config   ConversationConfig
	sink     core.EventSink
	logger   *core.Logger
	intro    *core.Latch

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	loading bool
	pending string
	mode    text.SpeechMode

	inflight sync.WaitGroup
}

// NewOrchestrator wires the store's change feed and the listener's append
// feed into sink. listener may be nil when no recognition engine exists.
func NewOrchestrator(
	chatService core.ChatService,
	store *transcript.Store,
	speaker Speaker,
	listener Listener,
	config ConversationConfig,
	sink core.EventSink,
	logger *core.Logger,
) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	if sink == nil {
		sink = core.NopSink
	}
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		chat:     chatService,
		store:    store,
		speaker:  speaker,
		listener: listener,
		config:   config,
		sink:     sink,
		logger:   logger.With(map[string]interface{}{"component": "conversation"}),
		intro:    core.NewLatch(),
		ctx:      ctx,
		cancel:   cancel,
		mode:     config.DefaultTTSMode,
	}

	store.OnChange(func(msgs []core.Message) {
		core.Publish(o.sink, &chat.TranscriptChangedEvent{Messages: msgs}, "Orchestrator")
	})
	if listener != nil {
		listener.OnAppend(o.AppendRecognized)
	}
	return o
}

// Submit sends raw to the chat service. It reports false, doing nothing, when
// raw is blank or another submission is still loading.
func (o *Orchestrator) Submit(raw string) bool {
	question := strings.TrimSpace(raw)

	o.mu.Lock()
	if question == "" || o.loading {
		o.mu.Unlock()
		return false
	}
	o.loading = true
	o.pending = ""
	o.mu.Unlock()

	o.speaker.Stop()
	o.store.Append(core.NewUserMessage(question))
	o.publishPending("")
	o.publishLoading(true)

	o.inflight.Add(1)
	go o.ask(question)
	return true
}

func (o *Orchestrator) ask(question string) {
	defer o.inflight.Done()
	defer o.setLoading(false)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("submission panic: %v", r)
		}
	}()

	answer, err := o.callChat(question)
	if err != nil {
		o.logger.Warn("chat request failed", "error", err)
		apology := apologyFor(err)
		o.store.Append(core.NewAssistantMessage(apology, nil, ""))
		o.speak(apology)
		return
	}

	disclaimer := answer.Disclaimer
	if strings.TrimSpace(disclaimer) == "" {
		disclaimer = o.config.DefaultDisclaimer
	}
	o.store.Append(core.NewAssistantMessage(answer.Text, answer.Sources, disclaimer))
	o.speak(answer.Text)
}

// speak derives the spoken variant of raw in the current mode.
func (o *Orchestrator) speak(raw string) {
	if spoken := text.Spoken(o.TTSMode(), raw); spoken.Text != "" {
		o.speaker.Speak(spoken.Text)
	}
}

func (o *Orchestrator) callChat(question string) (answer *core.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("chat service panic: %v", r)
			answer = nil
			err = &core.ServiceError{Service: "chat", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(o.ctx, o.config.RequestTimeout)
	defer cancel()

	answer, err = o.chat.Ask(ctx, core.Question{Message: question, Disease: o.config.Disease})
	if err != nil {
		return nil, err
	}
	if err := answer.Validate(); err != nil {
		return nil, err
	}
	return answer, nil
}

func apologyFor(err error) string {
	var svcErr *core.ServiceError
	if errors.As(err, &svcErr) && svcErr.IsTransport() {
		return ApologyTransport
	}
	return ApologyStatus
}

// ReplayMessage speaks an existing assistant message again in the current
// mode. The transcript is not touched.
func (o *Orchestrator) ReplayMessage(index int) error {
	msg, ok := o.store.At(index)
	if !ok || !msg.IsAssistant() {
		err := fmt.Errorf("conversation: replay index %d: %w", index, core.ErrInvalidOperation)
		o.logger.Warn(err.Error())
		return err
	}
	spoken := text.Spoken(o.TTSMode(), msg.Content)
	if spoken.Text == "" {
		o.speaker.Stop()
		return nil
	}
	o.speaker.Speak(spoken.Text)
	return nil
}

// Reset replaces the transcript with the greeting. An answer still in flight
// is appended after the greeting when it arrives.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.pending = ""
	o.mu.Unlock()

	o.speaker.Stop()
	o.store.ReplaceAll([]core.Message{o.config.GreetingMessage()})
	o.publishPending("")

	if o.config.SpeakGreetingOnReset {
		o.speakGreeting()
	}
}

func (o *Orchestrator) speakGreeting() {
	if spoken := text.CleanForFullSpeech(o.config.Greeting); spoken != "" {
		o.speaker.Speak(spoken)
	}
}

// HandleUserGesture unlocks audio and, on the very first gesture, speaks the
// greeting.
func (o *Orchestrator) HandleUserGesture() {
	o.speaker.HandleUserGesture()
	o.intro.Fire(func() {
		if o.config.SpeakIntroOnGesture {
			o.logger.Debug("speaking intro greeting")
			o.speakGreeting()
		}
	})
}

func (o *Orchestrator) SetPendingInput(s string) {
	o.mu.Lock()
	o.pending = s
	o.mu.Unlock()
	o.publishPending(s)
}

func (o *Orchestrator) PendingInput() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// AppendRecognized merges a recognized utterance into the pending input.
func (o *Orchestrator) AppendRecognized(recognized string) {
	o.mu.Lock()
	o.pending = stt.AppendToInput(o.pending, recognized)
	pending := o.pending
	o.mu.Unlock()
	o.publishPending(pending)
}

func (o *Orchestrator) ToggleSources(index int) error {
	return o.store.ToggleSourcesVisible(index)
}

func (o *Orchestrator) ToggleDisclaimer(index int) error {
	return o.store.ToggleDisclaimerVisible(index)
}

// SetTTSMode applies to the next playback; the current one keeps going.
func (o *Orchestrator) SetTTSMode(mode text.SpeechMode) {
	o.mu.Lock()
	o.mode = mode
	o.mu.Unlock()
	core.Publish(o.sink, &chat.TTSModeChangedEvent{Mode: string(mode)}, "Orchestrator")
}

func (o *Orchestrator) ToggleTTSMode() text.SpeechMode {
	next := o.TTSMode().Toggle()
	o.SetTTSMode(next)
	return next
}

func (o *Orchestrator) TTSMode() text.SpeechMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// ToggleMic starts recognition, or stops it when already listening. Without
// an engine it raises a capability notice and returns the capability error.
func (o *Orchestrator) ToggleMic() error {
	if o.listener == nil || !o.listener.Supported() {
		err := core.NewCapabilityError(core.CapabilitySpeechRecognition, nil)
		o.publishNotice(core.CapabilitySpeechRecognition, micUnsupportedNotice)
		return err
	}
	if o.listener.Listening() {
		return o.listener.Stop()
	}
	if err := o.listener.Start(o.ctx); err != nil {
		if errors.Is(err, core.ErrCapabilityUnavailable) {
			o.publishNotice(core.CapabilitySpeechRecognition, micUnsupportedNotice)
		}
		return err
	}
	return nil
}

func (o *Orchestrator) StopSpeaking() {
	o.speaker.Stop()
}

func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

func (o *Orchestrator) Transcript() []core.Message {
	return o.store.Snapshot()
}

// Wait blocks until every submission issued so far has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Close cancels chat calls still in flight and waits for them to unwind.
func (o *Orchestrator) Close() {
	o.cancel()
	o.inflight.Wait()
}

// HandleEvent routes a UI input event to the matching operation.
func (o *Orchestrator) HandleEvent(packet *core.EventPacket) error {
	if packet == nil || packet.Event == nil {
		return nil
	}
	switch ev := packet.Event.(type) {
	case *ui.SubmitEvent:
		o.Submit(ev.Text)
	case *ui.InputChangedEvent:
		o.SetPendingInput(ev.Text)
	case *ui.ReplayEvent:
		return o.ReplayMessage(ev.Index)
	case *ui.StopEvent:
		o.StopSpeaking()
	case *ui.ResetEvent:
		o.Reset()
	case *ui.ToggleSourcesEvent:
		return o.ToggleSources(ev.Index)
	case *ui.ToggleDisclaimerEvent:
		return o.ToggleDisclaimer(ev.Index)
	case *ui.SetTTSModeEvent:
		if ev.Mode == "" {
			o.ToggleTTSMode()
			return nil
		}
		mode, err := text.ParseSpeechMode(ev.Mode)
		if err != nil {
			return fmt.Errorf("conversation: %w: %w", core.ErrInvalidOperation, err)
		}
		o.SetTTSMode(mode)
	case *ui.MicToggleEvent:
		return o.ToggleMic()
	case *ui.UserGestureEvent:
		o.HandleUserGesture()
	default:
		return fmt.Errorf("conversation: unhandled event %q: %w", packet.Event.GetId(), core.ErrInvalidOperation)
	}
	return nil
}

func (o *Orchestrator) setLoading(loading bool) {
	o.mu.Lock()
	o.loading = loading
	o.mu.Unlock()
	o.publishLoading(loading)
}

func (o *Orchestrator) publishLoading(loading bool) {
	core.Publish(o.sink, &chat.LoadingChangedEvent{Loading: loading}, "Orchestrator")
}

func (o *Orchestrator) publishPending(s string) {
	core.Publish(o.sink, &chat.PendingInputChangedEvent{Text: s}, "Orchestrator")
}

func (o *Orchestrator) publishNotice(capability core.Capability, msg string) {
	core.Publish(o.sink, &core.CapabilityNoticeEvent{Capability: capability, Message: msg}, "Orchestrator")
}
