package tts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trustmed/core"
	"trustmed/events/tts"
	"trustmed/utils/audio"
)

type State int

const (
	StateIdle State = iota
	StateRequesting
	StatePlaying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// UnlockRequestID tags the silent priming clip on the output.
const UnlockRequestID = "unlock"

// PlaybackSession is the live utterance, if any.
type PlaybackSession struct {
	RequestID string
	State     State
}

// Controller owns the shared audio output. A new Speak always supersedes the
// current utterance; every async completion is checked against the current
// request id under mu before it may change anything.
type Controller struct {
	synth  Synthesizer
	output AudioOutput
	config TTSConfig
	sink   core.EventSink
	logger *core.Logger
	unlock *core.Latch

	mu      sync.Mutex
	state   State
	current string
	cancel  context.CancelFunc

	pending sync.WaitGroup
	newID   func() string
}

func NewController(synth Synthesizer, output AudioOutput, config TTSConfig, sink core.EventSink, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	if sink == nil {
		sink = core.NopSink
	}
	return &Controller{
		synth:  synth,
		output: output,
		config: config.withDefaults(),
		sink:   sink,
		logger: logger.With(map[string]interface{}{"component": "tts"}),
		unlock: core.NewLatch(),
		newID:  func() string { return uuid.New().String() },
	}
}

// Speak supersedes whatever is current and starts a new utterance. It returns
// the new request id, or "" when text is blank (the old utterance is still
// stopped).
func (c *Controller) Speak(text string) string {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltLocked()
	if text == "" {
		c.current = ""
		c.setStateLocked(StateStopped)
		return ""
	}

	id := c.newID()
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
	c.current = id
	c.cancel = cancel
	c.setStateLocked(StateRequesting)

	c.pending.Add(1)
	go c.synthesize(ctx, id, text)

	c.logger.Debug("speak requested", "request_id", id, "chars", len(text))
	return id
}

// Stop halts output, rewinds it and moves to Stopped from any state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltLocked()
	c.current = ""
	c.setStateLocked(StateStopped)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Session() PlaybackSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PlaybackSession{RequestID: c.current, State: c.state}
}

// HandleUserGesture consumes the autoplay-unlock latch on the first call and
// primes the output with a silent clip. It reports whether this call fired.
func (c *Controller) HandleUserGesture() bool {
	return c.unlock.Fire(c.prime)
}

func (c *Controller) Unlocked() bool {
	return !c.unlock.Armed()
}

func (c *Controller) prime() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		return
	}
	clip := audio.SilentWAV(c.config.UnlockClipDuration, 8000)
	if err := c.output.Load(UnlockRequestID, clip); err != nil {
		c.logger.Debug("unlock load failed", "error", err)
		return
	}
	if err := c.output.Play(UnlockRequestID); err != nil {
		c.logger.Debug("unlock play failed", "error", err)
	}
}

// Run consumes output events until ctx ends or the output closes its channel.
func (c *Controller) Run(ctx context.Context) {
	events := c.output.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleOutputEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

// Close stops playback, waits for in-flight requests to unwind and releases
// the output.
func (c *Controller) Close() error {
	c.Stop()
	c.pending.Wait()
	return c.output.Close()
}

func (c *Controller) synthesize(ctx context.Context, id, text string) {
	defer c.pending.Done()

	clip, err := c.callSynth(ctx, text)
	c.complete(id, clip, err)
}

func (c *Controller) callSynth(ctx context.Context, text string) (clip *core.AudioClip, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("synthesizer panic: %v", r)
			err = errors.New("tts: synthesizer panic")
		}
	}()
	return c.synth.Synthesize(ctx, text)
}

func (c *Controller) complete(id string, clip *core.AudioClip, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.current || c.state != StateRequesting {
		c.logger.Debug("discarding synthesis result", "request_id", id, "error", core.ErrStaleCompletion)
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	switch {
	case err != nil:
		c.logger.Warn("synthesis failed", "request_id", id, "error", err)
		c.setStateLocked(StateStopped)
		return
	case clip.Empty():
		c.logger.Debug("no audio for request", "request_id", id)
		c.setStateLocked(StateStopped)
		return
	}

	if err := c.output.Load(id, clip); err != nil {
		c.logger.Warn("audio load failed", "request_id", id, "error", err)
		c.setStateLocked(StateStopped)
		c.noticeIfCapability(err)
		return
	}
	if err := c.output.Play(id); err != nil {
		c.logger.Warn("audio play failed", "request_id", id, "error", err)
		c.setStateLocked(StateStopped)
		c.publishNotice("Audio playback could not start: " + err.Error())
		return
	}
	c.setStateLocked(StatePlaying)
}

func (c *Controller) handleOutputEvent(ev OutputEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.RequestID == UnlockRequestID {
		if ev.Kind == OutputBlocked {
			c.logger.Debug("unlock clip blocked", "error", ev.Err)
		}
		return
	}
	if ev.RequestID == "" || ev.RequestID != c.current || c.state != StatePlaying {
		c.logger.Debug("discarding output event", "request_id", ev.RequestID, "kind", ev.Kind.String(), "error", core.ErrStaleCompletion)
		return
	}

	switch ev.Kind {
	case OutputEnded:
		c.setStateLocked(StateStopped)
	case OutputBlocked:
		c.logger.Warn("playback blocked", "request_id", ev.RequestID, "error", ev.Err)
		c.setStateLocked(StateStopped)
		c.publishNotice("Audio playback was blocked by the browser. Click anywhere on the page and try again.")
	}
}

// haltLocked cancels in-flight synthesis and silences the output.
func (c *Controller) haltLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err := c.output.Pause(); err != nil {
		c.logger.Debug("pause failed", "error", err)
	}
	if err := c.output.SeekStart(); err != nil {
		c.logger.Debug("seek failed", "error", err)
	}
}

func (c *Controller) setStateLocked(state State) {
	c.state = state
	requestID := c.current
	if state == StateIdle {
		requestID = ""
	}
	core.Publish(c.sink, &tts.PlaybackStateChangedEvent{RequestID: requestID, State: state.String()}, "TTSController")
}

func (c *Controller) noticeIfCapability(err error) {
	if errors.Is(err, core.ErrCapabilityUnavailable) {
		c.publishNotice("Audio playback is unavailable: " + err.Error())
	}
}

func (c *Controller) publishNotice(msg string) {
	core.Publish(c.sink, &core.CapabilityNoticeEvent{Capability: core.CapabilityAudioPlayback, Message: msg}, "TTSController")
}
