package core

import (
	"encoding/base64"
	"fmt"
)

type AudioEncodingFormat string

const (
	MP3  AudioEncodingFormat = "mp3"
	WAV  AudioEncodingFormat = "wav"
	PCM  AudioEncodingFormat = "pcm_s16le" // Signed 16-bit little-endian PCM.
	ULAW AudioEncodingFormat = "pcm_mulaw" // μ-law encoding format.
)

var mimeTypes = map[AudioEncodingFormat]string{
	MP3:  "audio/mpeg",
	WAV:  "audio/wav",
	PCM:  "audio/L16",
	ULAW: "audio/basic",
}

// AudioClip is one complete synthesized utterance, ready to hand to an audio
// output. SampleRate and Channels are only meaningful for raw formats.
type AudioClip struct {
	Data       []byte
	Format     AudioEncodingFormat
	SampleRate int
	Channels   int
}

func (c *AudioClip) Empty() bool {
	return c == nil || len(c.Data) == 0
}

func (c *AudioClip) MimeType() string {
	if mt, ok := mimeTypes[c.Format]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Base64 returns the clip encoded the way the browser bridge ships it.
func (c *AudioClip) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// DataURL is a playable source reference for an HTML audio element.
func (c *AudioClip) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", c.MimeType(), c.Base64())
}

// GetDurationInSeconds is only defined for raw 16-bit PCM.
func (c *AudioClip) GetDurationInSeconds() float64 {
	if c.Format != PCM || c.SampleRate == 0 || c.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2
	totalSamples := len(c.Data) / (bytesPerSample * c.Channels)
	return float64(totalSamples) / float64(c.SampleRate)
}

// Extension is used when a clip is written to disk for a local player.
func (c *AudioClip) Extension() string {
	switch c.Format {
	case MP3:
		return ".mp3"
	case WAV:
		return ".wav"
	default:
		return ".raw"
	}
}
