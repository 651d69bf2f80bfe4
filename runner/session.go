package runner

import (
	"context"
	"errors"
	"sync"

	"trustmed/core"
	"trustmed/events/chat"
	"trustmed/events/ui"
	"trustmed/handlers/conversation"
	stthandler "trustmed/handlers/stt"
	"trustmed/handlers/transcript"
	ttshandler "trustmed/handlers/tts"
)

// DeviceEventHandler consumes device reports. It reports whether ev was
// one of its own.
type DeviceEventHandler interface {
	HandleDeviceEvent(ev core.IEvent) bool
}

// Devices are the per-session ends of the playback and recognition ports.
// Engine is nil when the client has no recognition.
type Devices struct {
	Output   ttshandler.AudioOutput
	Engine   stthandler.Engine
	Handlers []DeviceEventHandler
}

type SessionConfig struct {
	ID           string
	Conversation conversation.ConversationConfig
	TTS          ttshandler.TTSConfig
	STT          stthandler.STTConfig
}

// Session owns one conversation: its transcript, playback and recognition
// controllers and the orchestrator between them. Everything it publishes is
// forwarded to out from a single goroutine.
type Session struct {
	id     string
	logger *core.Logger
	sink   *core.AsyncSink

	store        *transcript.Store
	speaker      *ttshandler.Controller
	listener     *stthandler.Controller
	orchestrator *conversation.Orchestrator
	devices      Devices

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	onClose   []func()
}

func NewSession(
	chatService core.ChatService,
	synth ttshandler.Synthesizer,
	devices Devices,
	config SessionConfig,
	out core.EventSink,
	logger *core.Logger,
) *Session {
	if logger == nil {
		logger = core.GetLogger()
	}
	logger = logger.With(map[string]interface{}{"session_id": config.ID})
	sink := core.NewAsyncSink(out)

	store := transcript.NewStore(logger, config.Conversation.GreetingMessage())
	speaker := ttshandler.NewController(synth, devices.Output, config.TTS, sink, logger)
	listener := stthandler.NewController(devices.Engine, config.STT, sink, logger)
	orchestrator := conversation.NewOrchestrator(chatService, store, speaker, listener, config.Conversation, sink, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:           config.ID,
		logger:       logger,
		sink:         sink,
		store:        store,
		speaker:      speaker,
		listener:     listener,
		orchestrator: orchestrator,
		devices:      devices,
		cancel:       cancel,
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		speaker.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		listener.Run(ctx)
	}()

	s.publishSnapshot()
	logger.Info("session started", "stt_supported", listener.Supported())
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Orchestrator() *conversation.Orchestrator {
	return s.orchestrator
}

// OnClose registers fn to run after the session has shut down.
func (s *Session) OnClose(fn func()) {
	s.onClose = append(s.onClose, fn)
}

// HandleInput routes device reports to their adapter and everything else to
// the orchestrator.
func (s *Session) HandleInput(ev core.IExternalInputEvent) {
	for _, h := range s.devices.Handlers {
		if h.HandleDeviceEvent(ev) {
			return
		}
	}
	if _, ok := ev.(*ui.HelloEvent); ok {
		s.logger.Debug("ignoring repeated hello")
		return
	}

	err := s.orchestrator.HandleEvent(core.NewEventPacket(ev, "client"))
	switch {
	case err == nil:
	case errors.Is(err, core.ErrCapabilityUnavailable):
		// Already surfaced as a capability notice.
		s.logger.Debug("capability unavailable", "event", ev.GetId(), "error", err)
	default:
		s.logger.Warn("input event rejected", "event", ev.GetId(), "error", err)
		core.Publish(s.sink, &core.WarningEvent{Error: err.Error()}, "Session")
	}
}

func (s *Session) publishSnapshot() {
	core.Publish(s.sink, &chat.TranscriptChangedEvent{Messages: s.store.Snapshot()}, "Session")
	core.Publish(s.sink, &chat.TTSModeChangedEvent{Mode: string(s.orchestrator.TTSMode())}, "Session")
	core.Publish(s.sink, &chat.LoadingChangedEvent{Loading: false}, "Session")
}

// Close stops the conversation, releases the devices and flushes what was
// already published. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.orchestrator.Close()
		if err := s.listener.Stop(); err != nil {
			s.logger.Debug("stop recognition on close", "error", err)
		}
		if err := s.speaker.Close(); err != nil {
			s.logger.Debug("close audio output", "error", err)
		}
		if c, ok := s.devices.Engine.(interface{ Close() }); ok {
			c.Close()
		}
		s.cancel()
		s.wg.Wait()
		s.sink.Close()
		for _, fn := range s.onClose {
			fn()
		}
		s.logger.Info("session closed")
	})
}
