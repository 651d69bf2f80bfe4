package runner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustmed/core"
	"trustmed/events/ui"
	"trustmed/factories"
	ttshandler "trustmed/handlers/tts"
	"trustmed/services/browser"
)

const (
	capabilitySpeechRecognition = string(core.CapabilitySpeechRecognition)
	capabilityAudioPlayback     = string(core.CapabilityAudioPlayback)
)

var errHelloRequired = errors.New("first message must be ui.hello")

// Runner builds one Session per browser connection. The chat service and the
// synthesizer are shared by every session.
type Runner struct {
	settings factories.Settings
	chat     core.ChatService
	synth    ttshandler.Synthesizer
	logger   *core.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds the providers named in settings.
func New(settings factories.Settings, logger *core.Logger) (*Runner, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	chatService, err := factories.BuildChatService(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	synth, err := factories.BuildSynthesizer(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	return NewWithServices(settings, chatService, synth, logger), nil
}

func NewWithServices(settings factories.Settings, chatService core.ChatService, synth ttshandler.Synthesizer, logger *core.Logger) *Runner {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Runner{
		settings: settings,
		chat:     chatService,
		synth:    synth,
		logger:   logger.With(map[string]interface{}{"component": "runner"}),
		sessions: make(map[string]*Session),
	}
}

// NewSession builds a session with caller-supplied devices, as the terminal
// UI does.
func (r *Runner) NewSession(devices Devices, out core.EventSink) *Session {
	return r.newSession(uuid.NewString(), "", devices, out)
}

func (r *Runner) newSession(id, remoteAddr string, devices Devices, out core.EventSink) *Session {
	logger, closeLog := r.sessionLogger(id, remoteAddr)
	config := SessionConfig{
		ID:           id,
		Conversation: r.settings.ConversationConfig(),
		TTS:          r.settings.TTSConfig(),
		STT:          r.settings.STTConfig(),
	}
	s := NewSession(r.chat, r.synth, devices, config, out, logger)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	s.OnClose(func() {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		closeLog()
	})
	return s
}

// sessionLogger tees the session's log lines to <log_dir>/<id>.jsonl when a
// log directory is configured. The returned func closes the file.
func (r *Runner) sessionLogger(id, remoteAddr string) (*core.Logger, func()) {
	if r.settings.Log.Dir == "" {
		return r.logger, func() {}
	}
	writer, err := core.NewSessionLogWriter(r.settings.Log.Dir, core.SessionMetadata{
		SessionID:  id,
		Disease:    r.settings.Conversation.Disease,
		RemoteAddr: remoteAddr,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Warn("session log disabled", "session_id", id, "error", err)
		return r.logger, func() {}
	}
	return core.NewSessionLogger(r.logger, writer), writer.Close
}

// SessionCount reports the number of live sessions.
func (r *Runner) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// OnConnect implements core.ClientHandler. The session is built when the
// client's ui.hello arrives.
func (r *Runner) OnConnect(client *core.Client) (core.ClientSession, error) {
	return r.newClientSession(client.ID(), client.RemoteAddr(), client), nil
}

func (r *Runner) newClientSession(id, remoteAddr string, sender browser.Sender) *clientSession {
	return &clientSession{runner: r, id: id, remoteAddr: remoteAddr, sender: sender}
}

// Close closes every live session and the shared synthesizer.
func (r *Runner) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if c, ok := r.synth.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			r.logger.Debug("close synthesizer", "error", err)
		}
	}
}

// clientSession waits for ui.hello, then hands every event to its Session.
type clientSession struct {
	runner     *Runner
	id         string
	remoteAddr string
	sender     browser.Sender

	session *Session
}

func (c *clientSession) HandleInput(ev core.IExternalInputEvent) {
	if c.session != nil {
		c.session.HandleInput(ev)
		return
	}
	hello, ok := ev.(*ui.HelloEvent)
	if !ok {
		c.runner.logger.Warn("dropping event before hello", "client_id", c.id, "event", ev.GetId())
		if err := c.sender.Send(&core.WarningEvent{Error: errHelloRequired.Error()}); err != nil {
			c.runner.logger.Debug("send warning", "error", err)
		}
		return
	}
	c.session = c.runner.newSession(c.id, c.remoteAddr, c.devicesFor(hello), c.forward())
}

func (c *clientSession) devicesFor(hello *ui.HelloEvent) Devices {
	logger := c.runner.logger
	output := browser.NewAudioOutput(c.sender, hello.Has(capabilityAudioPlayback), logger)
	devices := Devices{Output: output, Handlers: []DeviceEventHandler{output}}
	if hello.Has(capabilitySpeechRecognition) {
		recognizer := browser.NewRecognizer(c.sender, logger)
		devices.Engine = recognizer
		devices.Handlers = append(devices.Handlers, recognizer)
	}
	return devices
}

func (c *clientSession) forward() core.EventSink {
	return core.EventSinkFunc(func(packet *core.EventPacket) {
		if err := c.sender.Send(packet.Event); err != nil {
			c.runner.logger.Debug("send to client failed", "client_id", c.id, "event", packet.Event.GetId(), "error", err)
		}
	})
}

func (c *clientSession) Close() {
	if c.session != nil {
		c.session.Close()
	}
}
