package tts

import (
	"context"

	"trustmed/core"
)

// Synthesizer turns text into one complete clip. A nil clip with a nil error
// means the service had no audio for the text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*core.AudioClip, error)
}

type OutputEventKind int

const (
	OutputStarted OutputEventKind = iota
	OutputEnded
	OutputBlocked // play() was refused after the fact (autoplay policy).
)

func (k OutputEventKind) String() string {
	switch k {
	case OutputStarted:
		return "started"
	case OutputEnded:
		return "ended"
	case OutputBlocked:
		return "blocked"
	}
	return "unknown"
}

type OutputEvent struct {
	RequestID string
	Kind      OutputEventKind
	Err       error
}

// AudioOutput is the single shared playback resource. Load and Play must not
// block on playback; completion is reported on Events tagged with the
// request id that was loaded.
type AudioOutput interface {
	Load(requestID string, clip *core.AudioClip) error
	Play(requestID string) error
	Pause() error
	SeekStart() error
	Events() <-chan OutputEvent
	Close() error
}
