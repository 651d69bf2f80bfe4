package conversation

import (
	"time"

	"trustmed/core"
	"trustmed/utils/text"
)

const (
	DefaultDisease    = "Type 2 Diabetes"
	DefaultGreeting   = "Hi, I’m TrustMedAI. I can answer educational questions about Type 2 Diabetes. What would you like to know?"
	DefaultDisclaimer = "⚠️ The information provided is for educational purposes only."

	// Shown and spoken in place of an answer.
	ApologyStatus    = "⚠️ Backend unreachable. Please try again."
	ApologyTransport = "⚠️ Network error contacting backend."

	micUnsupportedNotice = "Speech recognition is not supported in this browser. Try using Google Chrome on desktop."
)

type ConversationConfig struct {
	Disease              string
	Greeting             string
	DefaultDisclaimer    string
	DefaultTTSMode       text.SpeechMode
	SpeakGreetingOnReset bool
	SpeakIntroOnGesture  bool          // Speak the greeting once, on the first user gesture.
	RequestTimeout       time.Duration // Upper bound for one chat call.
}

func DefaultConfig() ConversationConfig {
	return ConversationConfig{
		Disease:              DefaultDisease,
		Greeting:             DefaultGreeting,
		DefaultDisclaimer:    DefaultDisclaimer,
		DefaultTTSMode:       text.SpeechModeSummary,
		SpeakGreetingOnReset: true,
		SpeakIntroOnGesture:  true,
		RequestTimeout:       60 * time.Second,
	}
}

func (c ConversationConfig) withDefaults() ConversationConfig {
	def := DefaultConfig()
	if c.Disease == "" {
		c.Disease = def.Disease
	}
	if c.Greeting == "" {
		c.Greeting = def.Greeting
	}
	if c.DefaultDisclaimer == "" {
		c.DefaultDisclaimer = def.DefaultDisclaimer
	}
	if c.DefaultTTSMode == "" {
		c.DefaultTTSMode = def.DefaultTTSMode
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	return c
}

// GreetingMessage is the single message a fresh or reset transcript holds.
func (c ConversationConfig) GreetingMessage() core.Message {
	return core.NewAssistantMessage(c.withDefaults().Greeting, nil, "")
}
