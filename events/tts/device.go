package tts

// Commands sent to a remote audio element.

type AudioLoadCommand struct {
	RequestID string `json:"request_id"`
	MimeType  string `json:"mime_type"`
	Audio     string `json:"audio"` // base64
}

func (e *AudioLoadCommand) GetId() string {
	return "device.audio.load"
}

type AudioPlayCommand struct {
	RequestID string `json:"request_id"`
}

func (e *AudioPlayCommand) GetId() string {
	return "device.audio.play"
}

type AudioPauseCommand struct{}

func (e *AudioPauseCommand) GetId() string {
	return "device.audio.pause"
}

type AudioSeekStartCommand struct{}

func (e *AudioSeekStartCommand) GetId() string {
	return "device.audio.seek_start"
}

// Reports coming back from the remote audio element.

type AudioStartedEvent struct {
	RequestID string `json:"request_id"`
}

func (e *AudioStartedEvent) GetId() string {
	return "device.audio.started"
}

type AudioEndedEvent struct {
	RequestID string `json:"request_id"`
}

func (e *AudioEndedEvent) GetId() string {
	return "device.audio.ended"
}

// AudioBlockedEvent is sent when play() was rejected, usually by the
// browser's autoplay policy.
type AudioBlockedEvent struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

func (e *AudioBlockedEvent) GetId() string {
	return "device.audio.blocked"
}
