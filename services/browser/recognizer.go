package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trustmed/core"
	"trustmed/events/stt"
	stthandler "trustmed/handlers/stt"
)

// Recognizer is the page's Web Speech engine, driven remotely. Only build one
// when the page reported speech recognition support.
type Recognizer struct {
	sender Sender
	logger *core.Logger

	mu     sync.Mutex
	events chan stthandler.EngineEvent
	closed bool
}

func NewRecognizer(sender Sender, logger *core.Logger) *Recognizer {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Recognizer{
		sender: sender,
		logger: logger.With(map[string]interface{}{"component": "browser_recognizer"}),
		events: make(chan stthandler.EngineEvent, eventBuffer),
	}
}

func (r *Recognizer) Start(_ context.Context, opts stthandler.RecognitionOptions) error {
	cmd := &stt.RecognitionStartCommand{
		ActivationID:   opts.ActivationID,
		Lang:           opts.Language,
		Continuous:     opts.Continuous,
		InterimResults: opts.InterimResults,
	}
	if err := r.sender.Send(cmd); err != nil {
		return fmt.Errorf("browser recognizer: start: %w", err)
	}
	return nil
}

func (r *Recognizer) Stop() error {
	if err := r.sender.Send(&stt.RecognitionStopCommand{}); err != nil {
		return fmt.Errorf("browser recognizer: stop: %w", err)
	}
	return nil
}

func (r *Recognizer) Events() <-chan stthandler.EngineEvent {
	return r.events
}

// HandleDeviceEvent turns a device.recognition.* report into an engine event.
// It reports whether ev was a recognition report.
func (r *Recognizer) HandleDeviceEvent(ev core.IEvent) bool {
	var out stthandler.EngineEvent
	switch e := ev.(type) {
	case *stt.RecognitionResultEvent:
		out = stthandler.EngineEvent{ActivationID: e.ActivationID, Kind: stthandler.EngineResult, Transcripts: e.Transcripts}
	case *stt.RecognitionEndEvent:
		out = stthandler.EngineEvent{ActivationID: e.ActivationID, Kind: stthandler.EngineEnd}
	case *stt.RecognitionErrorEvent:
		out = stthandler.EngineEvent{ActivationID: e.ActivationID, Kind: stthandler.EngineError, Err: errors.New(e.Error)}
	default:
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	select {
	case r.events <- out:
	default:
		r.logger.Warn("dropping recognition report, consumer is behind")
	}
	return true
}

func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
}
