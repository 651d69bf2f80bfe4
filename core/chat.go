package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse: the chat service answered with a success status but
// without a usable answer.
var ErrMalformedResponse = errors.New("malformed response")

// Question is one user turn sent to the chat service.
type Question struct {
	Message string `json:"message"`
	Disease string `json:"disease"`
}

// Answer is the chat service reply. Sources and Disclaimer are optional; an
// empty Disclaimer means the service omitted it.
type Answer struct {
	Text       string   `json:"answer"`
	Sources    []Source `json:"sources,omitempty"`
	Disclaimer string   `json:"disclaimer,omitempty"`
}

// Validate rejects answers that cannot be shown, and drops sources that carry
// no information.
func (a *Answer) Validate() error {
	if a == nil || strings.TrimSpace(a.Text) == "" {
		return fmt.Errorf("chat: empty answer: %w", ErrMalformedResponse)
	}
	kept := a.Sources[:0]
	for _, s := range a.Sources {
		if strings.TrimSpace(s.Source) == "" && strings.TrimSpace(s.Section) == "" {
			continue
		}
		kept = append(kept, s)
	}
	a.Sources = kept
	return nil
}

type ChatService interface {
	Ask(ctx context.Context, q Question) (*Answer, error)
}
