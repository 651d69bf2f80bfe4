package conversation

import "context"

// Speaker is the playback side the orchestrator drives. handlers/tts.Controller
// satisfies it.
type Speaker interface {
	Speak(text string) string
	Stop()
	HandleUserGesture() bool
}

// Listener is the speech input side. handlers/stt.Controller satisfies it.
type Listener interface {
	Supported() bool
	Listening() bool
	Start(ctx context.Context) error
	Stop() error
	OnAppend(fn func(text string))
}
