package stt

type RecognitionStateChangedEvent struct {
	Listening bool `json:"listening"`
}

func (e *RecognitionStateChangedEvent) GetId() string {
	return "stt.listening"
}

// STTFinalOutputEvent carries one recognized utterance.
type STTFinalOutputEvent struct {
	Text string `json:"text"`
}

func (e *STTFinalOutputEvent) GetId() string {
	return "stt.final_output"
}
