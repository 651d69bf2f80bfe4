package stt

// Commands sent to a remote recognition engine. Every report echoes the
// activation_id of the start command it belongs to.

type RecognitionStartCommand struct {
	ActivationID   string `json:"activation_id"`
	Lang           string `json:"lang"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interim_results"`
}

func (e *RecognitionStartCommand) GetId() string {
	return "device.recognition.start"
}

type RecognitionStopCommand struct{}

func (e *RecognitionStopCommand) GetId() string {
	return "device.recognition.stop"
}

// Reports coming back from the remote recognition engine.

type RecognitionResultEvent struct {
	ActivationID string   `json:"activation_id"`
	Transcripts  []string `json:"transcripts"`
}

func (e *RecognitionResultEvent) GetId() string {
	return "device.recognition.result"
}

type RecognitionEndEvent struct {
	ActivationID string `json:"activation_id"`
}

func (e *RecognitionEndEvent) GetId() string {
	return "device.recognition.end"
}

type RecognitionErrorEvent struct {
	ActivationID string `json:"activation_id"`
	Error        string `json:"error"`
}

func (e *RecognitionErrorEvent) GetId() string {
	return "device.recognition.error"
}
