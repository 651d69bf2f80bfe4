package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trustmed/core"
	"trustmed/events/stt"
)

type EngineEventKind int

const (
	EngineResult EngineEventKind = iota // A final transcript.
	EngineEnd                           // The engine stopped on its own.
	EngineError                         // The engine failed; it is no longer listening.
)

// EngineEvent is one report from the engine, tagged with the activation it
// belongs to.
type EngineEvent struct {
	ActivationID string
	Kind         EngineEventKind
	Transcripts  []string
	Err          error
}

// Engine is the native recognition engine. Start and Stop must not block on
// recognition itself; results arrive on Events.
type Engine interface {
	Start(ctx context.Context, opts RecognitionOptions) error
	Stop() error
	Events() <-chan EngineEvent
}

type State int

const (
	StateIdle State = iota
	StateListening
)

func (s State) String() string {
	if s == StateListening {
		return "listening"
	}
	return "idle"
}

var errNoEngine = errors.New("speech recognition is not supported on this device")

// Controller wraps an Engine in a start/stop pair. It never toggles itself:
// callers that expose a single mic button route to Start or Stop.
type Controller struct {
	engine    Engine
	supported bool
	config    STTConfig
	sink      core.EventSink
	logger    *core.Logger

	mu       sync.Mutex
	state    State
	current  string // activation id of the latest Start
	onAppend func(text string)
	newID    func() string
}

// NewController decides support once: a nil engine means every Start fails
// with a capability error.
func NewController(engine Engine, config STTConfig, sink core.EventSink, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	if sink == nil {
		sink = core.NopSink
	}
	return &Controller{
		engine:    engine,
		supported: engine != nil,
		config:    config,
		sink:      sink,
		logger:    logger.With(map[string]interface{}{"component": "stt"}),
		newID:     func() string { return uuid.New().String() },
	}
}

// OnAppend sets the receiver of recognized utterances.
func (c *Controller) OnAppend(fn func(text string)) {
	c.mu.Lock()
	c.onAppend = fn
	c.mu.Unlock()
}

func (c *Controller) Supported() bool {
	return c.supported
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Listening() bool {
	return c.State() == StateListening
}

// Start begins one recognition activation. It is a no-op while listening.
func (c *Controller) Start(ctx context.Context) error {
	if !c.supported {
		return core.NewCapabilityError(core.CapabilitySpeechRecognition, errNoEngine)
	}

	c.mu.Lock()
	if c.state == StateListening {
		c.mu.Unlock()
		return nil
	}
	opts := c.config.Options()
	opts.ActivationID = c.newID()
	if err := c.engine.Start(ctx, opts); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("stt: start recognition: %w", err)
	}
	c.state = StateListening
	c.current = opts.ActivationID
	c.mu.Unlock()

	c.logger.Debug("recognition started", "activation_id", opts.ActivationID)
	c.publishState(true)
	return nil
}

// Stop ends the activation. Stopping while idle is a no-op.
func (c *Controller) Stop() error {
	if !c.supported {
		return nil
	}

	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	err := c.engine.Stop()
	c.state = StateIdle
	c.mu.Unlock()

	c.publishState(false)
	if err != nil {
		return fmt.Errorf("stt: stop recognition: %w", err)
	}
	return nil
}

// Run consumes engine events until ctx ends or the engine closes its channel.
func (c *Controller) Run(ctx context.Context) {
	if !c.supported {
		return
	}
	events := c.engine.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.toIdle("")
				return
			}
			c.handleEngineEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

// handleEngineEvent only accepts reports from the latest activation. A
// result may still arrive after Stop; an end or error from an older
// activation never touches the current one.
func (c *Controller) handleEngineEvent(ev EngineEvent) {
	c.mu.Lock()
	current := c.current
	onAppend := c.onAppend
	c.mu.Unlock()

	if ev.ActivationID == "" || ev.ActivationID != current {
		c.logger.Debug("discarding recognition report", "activation_id", ev.ActivationID, "error", core.ErrStaleCompletion)
		return
	}

	switch ev.Kind {
	case EngineResult:
		text := joinTranscripts(ev.Transcripts)
		if text == "" {
			return
		}

		core.Publish(c.sink, &stt.STTFinalOutputEvent{Text: text}, "STTController")
		if onAppend != nil {
			onAppend(text)
		}
	case EngineEnd:
		c.toIdle(ev.ActivationID)
	case EngineError:
		c.logger.Warn("recognition error", "activation_id", ev.ActivationID, "error", ev.Err)
		c.toIdle(ev.ActivationID)
	}
}

// toIdle leaves Listening. A non-empty id must still be the current
// activation; Start may have replaced it since the report was checked.
func (c *Controller) toIdle(id string) {
	c.mu.Lock()
	if c.state == StateIdle || (id != "" && id != c.current) {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()
	c.publishState(false)
}

func (c *Controller) publishState(listening bool) {
	core.Publish(c.sink, &stt.RecognitionStateChangedEvent{Listening: listening}, "STTController")
}

func joinTranscripts(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// AppendToInput merges a recognized utterance into pending input, joining
// with a single space when there is prior text.
func AppendToInput(pending, recognized string) string {
	recognized = strings.TrimSpace(recognized)
	if recognized == "" {
		return pending
	}
	if strings.TrimSpace(pending) == "" {
		return recognized
	}
	return strings.TrimRight(pending, " ") + " " + recognized
}
