package tts

// PlaybackStateChangedEvent mirrors the playback controller's state machine.
// RequestID is empty for Idle and for Stopped after an explicit stop.
type PlaybackStateChangedEvent struct {
	RequestID string `json:"request_id,omitempty"`
	State     string `json:"state"`
}

func (e *PlaybackStateChangedEvent) GetId() string {
	return "tts.playback_state"
}
