package stt

type STTConfig struct {
	Language string `json:"language"` // BCP 47 tag handed to the recognition engine.
}

func DefaultConfig() STTConfig {
	return STTConfig{Language: "en-US"}
}

// RecognitionOptions are fixed for the session: final results only, one
// utterance per activation. ActivationID is set per Start.
type RecognitionOptions struct {
	ActivationID   string
	Language       string
	Continuous     bool
	InterimResults bool
}

func (c STTConfig) Options() RecognitionOptions {
	lang := c.Language
	if lang == "" {
		lang = DefaultConfig().Language
	}
	return RecognitionOptions{Language: lang}
}
