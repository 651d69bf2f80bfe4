package ui

// HelloEvent must be the first frame on a connection. Capabilities lists the
// device features the browser detected ("speech_recognition",
// "audio_playback").
type HelloEvent struct {
	Capabilities []string `json:"capabilities"`
}

func (e *HelloEvent) GetId() string {
	return "ui.hello"
}

func (e *HelloEvent) Has(capability string) bool {
	for _, c := range e.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type SubmitEvent struct {
	Text string `json:"text"`
}

func (e *SubmitEvent) GetId() string {
	return "ui.submit"
}

// InputChangedEvent mirrors typing into the pending input box.
type InputChangedEvent struct {
	Text string `json:"text"`
}

func (e *InputChangedEvent) GetId() string {
	return "ui.input"
}

type ReplayEvent struct {
	Index int `json:"index"`
}

func (e *ReplayEvent) GetId() string {
	return "ui.replay"
}

type StopEvent struct{}

func (e *StopEvent) GetId() string {
	return "ui.stop"
}

type ResetEvent struct{}

func (e *ResetEvent) GetId() string {
	return "ui.reset"
}

type ToggleSourcesEvent struct {
	Index int `json:"index"`
}

func (e *ToggleSourcesEvent) GetId() string {
	return "ui.toggle_sources"
}

type ToggleDisclaimerEvent struct {
	Index int `json:"index"`
}

func (e *ToggleDisclaimerEvent) GetId() string {
	return "ui.toggle_disclaimer"
}

// SetTTSModeEvent selects "summary" or "full". An empty Mode toggles.
type SetTTSModeEvent struct {
	Mode string `json:"mode,omitempty"`
}

func (e *SetTTSModeEvent) GetId() string {
	return "ui.tts_mode"
}

type MicToggleEvent struct{}

func (e *MicToggleEvent) GetId() string {
	return "ui.mic"
}

// UserGestureEvent is sent on the first pointer or key event of the page.
type UserGestureEvent struct {
	Kind string `json:"kind,omitempty"`
}

func (e *UserGestureEvent) GetId() string {
	return "ui.gesture"
}
