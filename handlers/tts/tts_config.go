package tts

import "time"

type TTSConfig struct {
	RequestTimeout     time.Duration // Upper bound for one synthesis request.
	UnlockClipDuration time.Duration // Length of the silent clip used to prime the output.
}

func DefaultConfig() TTSConfig {
	return TTSConfig{
		RequestTimeout:     30 * time.Second,
		UnlockClipDuration: 100 * time.Millisecond,
	}
}

func (c TTSConfig) withDefaults() TTSConfig {
	def := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.UnlockClipDuration <= 0 {
		c.UnlockClipDuration = def.UnlockClipDuration
	}
	return c
}
