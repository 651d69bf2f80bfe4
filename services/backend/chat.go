package backend

import (
	"context"
	"fmt"

	"trustmed/core"
)

type chatRequest struct {
	Message string `json:"message"`
	Disease string `json:"disease"`
}

type chatResponse struct {
	Answer     *string       `json:"answer"`
	Sources    []core.Source `json:"sources"`
	Disclaimer string        `json:"disclaimer"`
}

// Ask implements core.ChatService against POST /chat.
func (c *Client) Ask(ctx context.Context, q core.Question) (*core.Answer, error) {
	var resp chatResponse
	if err := c.postJSON(ctx, "chat", "/chat", chatRequest{Message: q.Message, Disease: q.Disease}, &resp); err != nil {
		return nil, err
	}
	if resp.Answer == nil {
		return nil, fmt.Errorf("backend: chat: missing answer: %w", core.ErrMalformedResponse)
	}
	return &core.Answer{
		Text:       *resp.Answer,
		Sources:    resp.Sources,
		Disclaimer: resp.Disclaimer,
	}, nil
}
