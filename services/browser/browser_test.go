package browser

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trustmed/core"
	"trustmed/events/stt"
	"trustmed/events/tts"
	stthandler "trustmed/handlers/stt"
	ttshandler "trustmed/handlers/tts"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []core.IExternalOutputEvent
	err  error
}

func (s *recordingSender) Send(ev core.IExternalOutputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, ev)
	return nil
}

func (s *recordingSender) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.sent {
		out = append(out, ev.GetId())
	}
	return out
}

func TestAudioOutputSendsCommands(t *testing.T) {
	sender := &recordingSender{}
	out := NewAudioOutput(sender, true, core.Discard())

	clip := &core.AudioClip{Data: []byte("ID3"), Format: core.MP3}
	if err := out.Load("req-1", clip); err != nil {
		t.Fatal(err)
	}
	if err := out.Play("req-1"); err != nil {
		t.Fatal(err)
	}
	out.Pause()
	out.SeekStart()

	want := []string{"device.audio.load", "device.audio.play", "device.audio.pause", "device.audio.seek_start"}
	got := sender.ids()
	if len(got) != len(want) {
		t.Fatalf("sent = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent = %v, want %v", got, want)
		}
	}
	load := sender.sent[0].(*tts.AudioLoadCommand)
	if load.RequestID != "req-1" || load.MimeType != "audio/mpeg" || load.Audio != clip.Base64() {
		t.Errorf("load = %+v", load)
	}
}

func TestAudioOutputUnavailable(t *testing.T) {
	sender := &recordingSender{}
	out := NewAudioOutput(sender, false, core.Discard())

	err := out.Load("req-1", &core.AudioClip{Data: []byte{1}, Format: core.MP3})
	if !errors.Is(err, core.ErrCapabilityUnavailable) {
		t.Fatalf("err = %v, want capability error", err)
	}
	if err := out.Pause(); err != nil {
		t.Errorf("Pause on unavailable output: %v", err)
	}
	if n := len(sender.ids()); n != 0 {
		t.Errorf("sent %d commands to a page without audio", n)
	}
}

func TestAudioOutputReports(t *testing.T) {
	out := NewAudioOutput(&recordingSender{}, true, core.Discard())

	if !out.HandleDeviceEvent(&tts.AudioEndedEvent{RequestID: "req-1"}) {
		t.Fatal("ended report not handled")
	}
	if !out.HandleDeviceEvent(&tts.AudioBlockedEvent{RequestID: "req-2", Reason: "NotAllowedError"}) {
		t.Fatal("blocked report not handled")
	}
	if out.HandleDeviceEvent(&stt.RecognitionEndEvent{}) {
		t.Fatal("recognition report handled by audio output")
	}

	ended := <-out.Events()
	if ended.RequestID != "req-1" || ended.Kind != ttshandler.OutputEnded {
		t.Errorf("first event = %+v", ended)
	}
	blocked := <-out.Events()
	if blocked.Kind != ttshandler.OutputBlocked || !errors.Is(blocked.Err, core.ErrCapabilityUnavailable) {
		t.Errorf("second event = %+v", blocked)
	}

	out.Close()
	out.Close()
	if _, ok := <-out.Events(); ok {
		t.Error("events channel still open after Close")
	}
	out.HandleDeviceEvent(&tts.AudioEndedEvent{RequestID: "late"})
}

func TestRecognizerCommandsAndReports(t *testing.T) {
	sender := &recordingSender{}
	r := NewRecognizer(sender, core.Discard())

	opts := stthandler.DefaultConfig().Options()
	opts.ActivationID = "act-1"
	if err := r.Start(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	start := sender.sent[0].(*stt.RecognitionStartCommand)
	if start.ActivationID != "act-1" || start.Lang != "en-US" || start.Continuous || start.InterimResults {
		t.Errorf("start = %+v", start)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	r.HandleDeviceEvent(&stt.RecognitionResultEvent{ActivationID: "act-1", Transcripts: []string{"high", "blood sugar"}})
	r.HandleDeviceEvent(&stt.RecognitionErrorEvent{ActivationID: "act-1", Error: "no-speech"})

	res := <-r.Events()
	if res.Kind != stthandler.EngineResult || len(res.Transcripts) != 2 || res.ActivationID != "act-1" {
		t.Errorf("result = %+v", res)
	}
	if e := <-r.Events(); e.Kind != stthandler.EngineError || e.Err == nil || e.Err.Error() != "no-speech" || e.ActivationID != "act-1" {
		t.Errorf("error event = %+v", e)
	}
}

func TestRecognizerSendFailure(t *testing.T) {
	r := NewRecognizer(&recordingSender{err: errors.New("closed")}, core.Discard())
	if err := r.Start(context.Background(), stthandler.RecognitionOptions{}); err == nil {
		t.Fatal("expected error when the client is gone")
	}
}
