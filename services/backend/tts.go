package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"trustmed/core"
)

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsResponse struct {
	Audio   string `json:"audio"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Synthesize implements the playback controller's Synthesizer against
// POST /tts. A response without audio is not an error: it returns a nil clip.
func (c *Client) Synthesize(ctx context.Context, text string) (*core.AudioClip, error) {
	var resp ttsResponse
	if err := c.postJSON(ctx, "tts", "/tts", ttsRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		msg := resp.Error
		if resp.Details != "" {
			msg += ": " + truncate(resp.Details, maxErrorBody)
		}
		return nil, &core.ServiceError{Service: "tts", Err: errors.New(msg), StatusCode: 200}
	}
	if strings.TrimSpace(resp.Audio) == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("backend: tts: decode audio: %w: %w", core.ErrMalformedResponse, err)
	}
	return &core.AudioClip{Data: data, Format: core.MP3}, nil
}
