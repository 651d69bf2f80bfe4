package browser

import (
	"errors"
	"fmt"
	"sync"

	"trustmed/core"
	"trustmed/events/tts"
	ttshandler "trustmed/handlers/tts"
)

// Sender delivers an event to the connected browser. *core.Client satisfies it.
type Sender interface {
	Send(ev core.IExternalOutputEvent) error
}

const eventBuffer = 32

// AudioOutput drives a single <audio> element in the browser through device
// commands. Playback reports come back through HandleDeviceEvent.
type AudioOutput struct {
	sender    Sender
	available bool
	logger    *core.Logger

	mu     sync.Mutex
	events chan ttshandler.OutputEvent
	closed bool
}

// NewAudioOutput builds the output for one client. When available is false
// (the page reported no audio support) every Load fails with a capability
// error.
func NewAudioOutput(sender Sender, available bool, logger *core.Logger) *AudioOutput {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &AudioOutput{
		sender:    sender,
		available: available,
		logger:    logger.With(map[string]interface{}{"component": "browser_audio"}),
		events:    make(chan ttshandler.OutputEvent, eventBuffer),
	}
}

func (o *AudioOutput) Load(requestID string, clip *core.AudioClip) error {
	if !o.available {
		return core.NewCapabilityError(core.CapabilityAudioPlayback, errors.New("browser reported no audio output"))
	}
	if clip.Empty() {
		return fmt.Errorf("browser output: load %s: empty clip", requestID)
	}
	cmd := &tts.AudioLoadCommand{RequestID: requestID, MimeType: clip.MimeType(), Audio: clip.Base64()}
	if err := o.sender.Send(cmd); err != nil {
		return fmt.Errorf("browser output: load %s: %w", requestID, err)
	}
	return nil
}

func (o *AudioOutput) Play(requestID string) error {
	if !o.available {
		return core.NewCapabilityError(core.CapabilityAudioPlayback, nil)
	}
	if err := o.sender.Send(&tts.AudioPlayCommand{RequestID: requestID}); err != nil {
		return fmt.Errorf("browser output: play %s: %w", requestID, err)
	}
	return nil
}

func (o *AudioOutput) Pause() error {
	if !o.available {
		return nil
	}
	return o.sender.Send(&tts.AudioPauseCommand{})
}

func (o *AudioOutput) SeekStart() error {
	if !o.available {
		return nil
	}
	return o.sender.Send(&tts.AudioSeekStartCommand{})
}

func (o *AudioOutput) Events() <-chan ttshandler.OutputEvent {
	return o.events
}

// HandleDeviceEvent turns a device.audio.* report into an output event. It
// reports whether ev was an audio report.
func (o *AudioOutput) HandleDeviceEvent(ev core.IEvent) bool {
	var out ttshandler.OutputEvent
	switch e := ev.(type) {
	case *tts.AudioStartedEvent:
		out = ttshandler.OutputEvent{RequestID: e.RequestID, Kind: ttshandler.OutputStarted}
	case *tts.AudioEndedEvent:
		out = ttshandler.OutputEvent{RequestID: e.RequestID, Kind: ttshandler.OutputEnded}
	case *tts.AudioBlockedEvent:
		out = ttshandler.OutputEvent{
			RequestID: e.RequestID,
			Kind:      ttshandler.OutputBlocked,
			Err:       core.NewCapabilityError(core.CapabilityAudioPlayback, errors.New(e.Reason)),
		}
	default:
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return true
	}
	select {
	case o.events <- out:
	default:
		o.logger.Warn("dropping audio report, consumer is behind", "request_id", out.RequestID, "kind", out.Kind.String())
	}
	return true
}

func (o *AudioOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.events)
	}
	return nil
}
