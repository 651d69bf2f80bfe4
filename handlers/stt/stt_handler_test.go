package stt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trustmed/core"
	"trustmed/events/stt"
)

type fakeEngine struct {
	mu     sync.Mutex
	starts []RecognitionOptions
	stops  int
	events chan EngineEvent
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan EngineEvent, 8)}
}

func (e *fakeEngine) Start(_ context.Context, opts RecognitionOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts = append(e.starts, opts)
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	return nil
}

func (e *fakeEngine) Events() <-chan EngineEvent {
	return e.events
}

func (e *fakeEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.starts)
}

// activation returns the id handed to the n-th Start.
func (e *fakeEngine) activation(n int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts[n].ActivationID
}

type recordingSink struct {
	mu     sync.Mutex
	events []core.IEvent
}

func (s *recordingSink) Publish(p *core.EventPacket) {
	s.mu.Lock()
	s.events = append(s.events, p.Event)
	s.mu.Unlock()
}

func (s *recordingSink) listeningStates() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bool
	for _, ev := range s.events {
		if st, ok := ev.(*stt.RecognitionStateChangedEvent); ok {
			out = append(out, st.Listening)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestUnsupportedEngineFailsFast(t *testing.T) {
	c := NewController(nil, DefaultConfig(), nil, core.Discard())
	if c.Supported() {
		t.Fatal("Supported() = true for nil engine")
	}
	err := c.Start(context.Background())
	if !errors.Is(err, core.ErrCapabilityUnavailable) {
		t.Fatalf("Start err = %v, want ErrCapabilityUnavailable", err)
	}
	var capErr *core.CapabilityError
	if !errors.As(err, &capErr) || capErr.Capability != core.CapabilitySpeechRecognition {
		t.Errorf("Start err = %#v, want speech recognition capability error", err)
	}
	if c.Listening() {
		t.Error("Listening() = true after failed start")
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Stop on unsupported controller = %v", err)
	}
}

func TestStartWhileListeningIsNoop(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, DefaultConfig(), nil, core.Discard())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if engine.startCount() != 1 {
		t.Fatalf("engine started %d times, want 1", engine.startCount())
	}
	opts := engine.starts[0]
	if opts.Language != "en-US" || opts.Continuous || opts.InterimResults {
		t.Errorf("options = %+v, want en-US final-only single utterance", opts)
	}
	if !c.Listening() {
		t.Error("Listening() = false after Start")
	}
}

func TestResultEmitsAppendAndEndReturnsToIdle(t *testing.T) {
	engine := newFakeEngine()
	sink := &recordingSink{}
	c := NewController(engine, DefaultConfig(), sink, core.Discard())

	var mu sync.Mutex
	var appended []string
	c.OnAppend(func(text string) {
		mu.Lock()
		appended = append(appended, text)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := engine.activation(0)
	if id == "" {
		t.Fatal("Start passed no activation id")
	}
	engine.events <- EngineEvent{ActivationID: id, Kind: EngineResult, Transcripts: []string{" what is ", "insulin "}}
	engine.events <- EngineEvent{ActivationID: id, Kind: EngineEnd}

	waitFor(t, func() bool { return !c.Listening() })

	mu.Lock()
	defer mu.Unlock()
	if len(appended) != 1 || appended[0] != "what is insulin" {
		t.Fatalf("appended = %q, want [what is insulin]", appended)
	}
	states := sink.listeningStates()
	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("listening states = %v, want [true false]", states)
	}
}

func TestEngineErrorReturnsToIdle(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, DefaultConfig(), nil, core.Discard())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.handleEngineEvent(EngineEvent{ActivationID: engine.activation(0), Kind: EngineError, Err: errors.New("no-speech")})
	if c.Listening() {
		t.Fatal("still listening after engine error")
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart after error: %v", err)
	}
	if engine.startCount() != 2 {
		t.Errorf("engine started %d times, want 2", engine.startCount())
	}
}

func TestLateEndFromStoppedActivationIsIgnored(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, DefaultConfig(), nil, core.Discard())

	var mu sync.Mutex
	var appended []string
	c.OnAppend(func(text string) {
		mu.Lock()
		appended = append(appended, text)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	first, second := engine.activation(0), engine.activation(1)
	if first == second {
		t.Fatalf("activations share id %q", first)
	}

	// The first activation reports late; the second one's result follows.
	engine.events <- EngineEvent{ActivationID: first, Kind: EngineEnd}
	engine.events <- EngineEvent{ActivationID: first, Kind: EngineResult, Transcripts: []string{"old words"}}
	engine.events <- EngineEvent{ActivationID: second, Kind: EngineResult, Transcripts: []string{"new words"}}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(appended) > 0
	})

	if !c.Listening() {
		t.Error("late end of a stopped activation ended the current one")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(appended) != 1 || appended[0] != "new words" {
		t.Errorf("appended = %q, want [new words]", appended)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if engine.startCount() != 2 {
		t.Errorf("engine started %d times, want 2", engine.startCount())
	}
}

func TestResultAfterStopIsKept(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, DefaultConfig(), nil, core.Discard())
	var got string
	c.OnAppend(func(text string) { got = text })

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	c.handleEngineEvent(EngineEvent{ActivationID: engine.activation(0), Kind: EngineResult, Transcripts: []string{"last words"}})
	if got != "last words" {
		t.Errorf("appended %q, want the final result of the stopped activation", got)
	}

	c.handleEngineEvent(EngineEvent{Kind: EngineResult, Transcripts: []string{"untagged"}})
	if got != "last words" {
		t.Errorf("untagged report was accepted: %q", got)
	}
}

func TestStopIsSafeWhenIdle(t *testing.T) {
	engine := newFakeEngine()
	c := NewController(engine, DefaultConfig(), nil, core.Discard())
	for i := 0; i < 3; i++ {
		if err := c.Stop(); err != nil {
			t.Fatalf("Stop #%d: %v", i, err)
		}
	}
	if engine.stops != 0 {
		t.Errorf("engine.Stop called %d times while idle", engine.stops)
	}
}

func TestAppendToInput(t *testing.T) {
	cases := []struct{ pending, recognized, want string }{
		{"", "hello", "hello"},
		{"what is", "insulin", "what is insulin"},
		{"what is ", "insulin", "what is insulin"},
		{"keep", "  ", "keep"},
	}
	for _, tc := range cases {
		if got := AppendToInput(tc.pending, tc.recognized); got != tc.want {
			t.Errorf("AppendToInput(%q, %q) = %q, want %q", tc.pending, tc.recognized, got, tc.want)
		}
	}
}
