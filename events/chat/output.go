package chat

import "trustmed/core"

// TranscriptChangedEvent carries a full snapshot; clients replace their copy.
type TranscriptChangedEvent struct {
	Messages []core.Message `json:"messages"`
}

func (e *TranscriptChangedEvent) GetId() string {
	return "chat.transcript"
}

type LoadingChangedEvent struct {
	Loading bool `json:"loading"`
}

func (e *LoadingChangedEvent) GetId() string {
	return "chat.loading"
}

type PendingInputChangedEvent struct {
	Text string `json:"text"`
}

func (e *PendingInputChangedEvent) GetId() string {
	return "chat.pending_input"
}

type TTSModeChangedEvent struct {
	Mode string `json:"mode"`
}

func (e *TTSModeChangedEvent) GetId() string {
	return "chat.tts_mode"
}
