package tts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trustmed/core"
	"trustmed/events/tts"
)

type synthResult struct {
	clip *core.AudioClip
	err  error
}

// gatedSynth blocks each request until the test releases it, ignoring ctx so
// a superseded request can still resolve late.
type gatedSynth struct {
	mu    sync.Mutex
	gates map[string]chan synthResult
}

func newGatedSynth() *gatedSynth {
	return &gatedSynth{gates: make(map[string]chan synthResult)}
}

func (s *gatedSynth) gate(text string) chan synthResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[text]
	if !ok {
		g = make(chan synthResult, 1)
		s.gates[text] = g
	}
	return g
}

func (s *gatedSynth) Synthesize(_ context.Context, text string) (*core.AudioClip, error) {
	r := <-s.gate(text)
	return r.clip, r.err
}

func (s *gatedSynth) release(text string, clip *core.AudioClip, err error) {
	s.gate(text) <- synthResult{clip: clip, err: err}
}

type fakeOutput struct {
	mu      sync.Mutex
	loads   []string
	plays   []string
	pauses  int
	seeks   int
	playErr error
	events  chan OutputEvent
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{events: make(chan OutputEvent, 8)}
}

func (o *fakeOutput) Load(id string, _ *core.AudioClip) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, id)
	return nil
}

func (o *fakeOutput) Play(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return o.playErr
	}
	o.plays = append(o.plays, id)
	return nil
}

func (o *fakeOutput) Pause() error {
	o.mu.Lock()
	o.pauses++
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) SeekStart() error {
	o.mu.Lock()
	o.seeks++
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) Events() <-chan OutputEvent { return o.events }
func (o *fakeOutput) Close() error               { return nil }

func (o *fakeOutput) snapshot() (loads, plays []string, pauses, seeks int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.loads...), append([]string(nil), o.plays...), o.pauses, o.seeks
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

func (s *recordingSink) notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if n, ok := ev.(*core.CapabilityNoticeEvent); ok {
			out = append(out, n.Message)
		}
	}
	return out
}

func (s *recordingSink) states() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if st, ok := ev.(*tts.PlaybackStateChangedEvent); ok {
			out = append(out, st.State)
		}
	}
	return out
}

var testClip = &core.AudioClip{Data: []byte{1, 2, 3, 4}, Format: core.MP3}

func newTestController(synth Synthesizer) (*Controller, *fakeOutput, *recordingSink) {
	out := newFakeOutput()
	sink := &recordingSink{}
	c := NewController(synth, out, DefaultConfig(), sink, core.Discard())
	var n int
	c.newID = func() string {
		n++
		return []string{"", "req-1", "req-2", "req-3", "req-4"}[n]
	}
	return c, out, sink
}

func TestSpeakSupersedesPendingRequest(t *testing.T) {
	synth := newGatedSynth()
	c, out, _ := newTestController(synth)

	idA := c.Speak("A")
	idB := c.Speak("B")
	if idA == idB {
		t.Fatalf("request ids must differ, both %q", idA)
	}

	synth.release("A", testClip, nil)
	synth.release("B", testClip, nil)
	c.pending.Wait()

	loads, plays, _, _ := out.snapshot()
	if len(loads) != 1 || loads[0] != idB {
		t.Fatalf("loads = %v, want [%s]", loads, idB)
	}
	if len(plays) != 1 || plays[0] != idB {
		t.Fatalf("plays = %v, want [%s]", plays, idB)
	}
	if s := c.Session(); s.RequestID != idB || s.State != StatePlaying {
		t.Fatalf("session = %+v, want %s playing", s, idB)
	}
}

func TestLateCompletionAfterStopIsDiscarded(t *testing.T) {
	synth := newGatedSynth()
	c, out, _ := newTestController(synth)

	c.Speak("A")
	c.Stop()
	synth.release("A", testClip, nil)
	c.pending.Wait()

	if loads, _, _, _ := out.snapshot(); len(loads) != 0 {
		t.Fatalf("loads = %v, want none", loads)
	}
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestStaleOutputEventIsInert(t *testing.T) {
	synth := newGatedSynth()
	c, _, _ := newTestController(synth)

	idA := c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()

	idB := c.Speak("B")
	synth.release("B", testClip, nil)
	c.pending.Wait()

	c.handleOutputEvent(OutputEvent{RequestID: idA, Kind: OutputEnded})
	if s := c.Session(); s.RequestID != idB || s.State != StatePlaying {
		t.Fatalf("stale ended changed session to %+v", s)
	}

	c.handleOutputEvent(OutputEvent{RequestID: idB, Kind: OutputEnded})
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v after ended, want stopped", got)
	}
}

func TestStopIsSafeFromEveryState(t *testing.T) {
	synth := newGatedSynth()
	c, out, _ := newTestController(synth)

	c.Stop()
	c.Stop()
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}

	c.Speak("A")
	c.Stop()
	synth.release("A", testClip, nil)
	c.pending.Wait()

	c.Speak("B")
	synth.release("B", testClip, nil)
	c.pending.Wait()
	if got := c.State(); got != StatePlaying {
		t.Fatalf("state = %v, want playing", got)
	}
	c.Stop()
	c.Stop()

	_, _, pauses, seeks := out.snapshot()
	// Two stops from idle, one from requesting, two from playing, plus two speaks.
	if pauses != 7 || seeks != 7 {
		t.Fatalf("pauses=%d seeks=%d, want 7 each", pauses, seeks)
	}
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestMissingAudioEndsStopped(t *testing.T) {
	synth := newGatedSynth()
	c, out, sink := newTestController(synth)

	c.Speak("A")
	synth.release("A", nil, nil)
	c.pending.Wait()

	if loads, _, _, _ := out.snapshot(); len(loads) != 0 {
		t.Fatalf("loads = %v, want none", loads)
	}
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	if n := sink.notices(); len(n) != 0 {
		t.Fatalf("unexpected notices %v", n)
	}
}

func TestSynthesisErrorEndsStopped(t *testing.T) {
	synth := newGatedSynth()
	c, _, _ := newTestController(synth)

	c.Speak("A")
	synth.release("A", nil, &core.ServiceError{Service: "tts", StatusCode: 500})
	c.pending.Wait()

	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestPlayFailureRaisesNotice(t *testing.T) {
	synth := newGatedSynth()
	c, out, sink := newTestController(synth)
	out.playErr = core.NewCapabilityError(core.CapabilityAudioPlayback, errors.New("NotAllowedError"))

	c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()

	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	if n := sink.notices(); len(n) != 1 {
		t.Fatalf("notices = %v, want one", n)
	}
}

func TestBlockedOutputRaisesNotice(t *testing.T) {
	synth := newGatedSynth()
	c, _, sink := newTestController(synth)

	id := c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()

	c.handleOutputEvent(OutputEvent{RequestID: id, Kind: OutputBlocked, Err: errors.New("NotAllowedError")})
	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	if n := sink.notices(); len(n) != 1 {
		t.Fatalf("notices = %v, want one", n)
	}
}

func TestBlankSpeakStopsCurrent(t *testing.T) {
	synth := newGatedSynth()
	c, _, _ := newTestController(synth)

	c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()

	if id := c.Speak("   "); id != "" {
		t.Fatalf("Speak(blank) = %q, want empty id", id)
	}
	if s := c.Session(); s.State != StateStopped || s.RequestID != "" {
		t.Fatalf("session = %+v, want stopped with no request", s)
	}
}

func TestStateEventsInOrder(t *testing.T) {
	synth := newGatedSynth()
	c, _, sink := newTestController(synth)

	id := c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()
	c.handleOutputEvent(OutputEvent{RequestID: id, Kind: OutputEnded})

	want := []string{"requesting", "playing", "stopped"}
	got := sink.states()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
}

func TestUserGestureUnlocksOnce(t *testing.T) {
	c, out, _ := newTestController(newGatedSynth())

	if c.Unlocked() {
		t.Fatal("controller unlocked before any gesture")
	}
	if !c.HandleUserGesture() {
		t.Fatal("first gesture did not fire the latch")
	}
	if c.HandleUserGesture() {
		t.Fatal("second gesture fired the latch again")
	}
	if !c.Unlocked() {
		t.Fatal("controller still locked after gesture")
	}

	loads, plays, _, _ := out.snapshot()
	if len(loads) != 1 || loads[0] != UnlockRequestID {
		t.Fatalf("loads = %v, want [%s]", loads, UnlockRequestID)
	}
	if len(plays) != 1 || plays[0] != UnlockRequestID {
		t.Fatalf("plays = %v, want [%s]", plays, UnlockRequestID)
	}

	c.handleOutputEvent(OutputEvent{RequestID: UnlockRequestID, Kind: OutputEnded})
	if got := c.State(); got != StateIdle {
		t.Fatalf("unlock clip end changed state to %v", got)
	}
}

func TestRunConsumesOutputEvents(t *testing.T) {
	synth := newGatedSynth()
	c, out, _ := newTestController(synth)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	id := c.Speak("A")
	synth.release("A", testClip, nil)
	c.pending.Wait()

	out.events <- OutputEvent{RequestID: id, Kind: OutputEnded}
	close(out.events)
	<-done
	cancel()

	if got := c.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}
