package local

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"trustmed/core"
	ttshandler "trustmed/handlers/tts"
	"trustmed/utils/audio"
)

// DefaultCommand plays a file and exits when it ends. The clip path is
// appended as the last argument.
var DefaultCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

// Player implements the playback port on the local machine by running an
// external player process per clip.
type Player struct {
	command []string
	logger  *core.Logger
	dir     string

	mu       sync.Mutex
	loadedID string
	path     string
	proc     *exec.Cmd
	procID   string
	stopped  map[*exec.Cmd]bool
	events   chan ttshandler.OutputEvent
	closed   bool
}

func NewPlayer(command []string, logger *core.Logger) (*Player, error) {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	dir, err := os.MkdirTemp("", "trustmed-audio-")
	if err != nil {
		return nil, fmt.Errorf("local player: temp dir: %w", err)
	}
	return &Player{
		command: append([]string(nil), command...),
		logger:  logger.With(map[string]interface{}{"component": "local_player"}),
		dir:     dir,
		stopped: make(map[*exec.Cmd]bool),
		events:  make(chan ttshandler.OutputEvent, 16),
	}, nil
}

// Available reports whether the player binary can be found.
func (p *Player) Available() bool {
	_, err := exec.LookPath(p.command[0])
	return err == nil
}

func (p *Player) Load(requestID string, clip *core.AudioClip) error {
	playable, err := audio.ToWAV(clip)
	if err != nil {
		return fmt.Errorf("local player: load %s: %w", requestID, err)
	}
	path := filepath.Join(p.dir, "clip"+playable.Extension())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	if err := os.WriteFile(path, playable.Data, 0o600); err != nil {
		return fmt.Errorf("local player: write clip: %w", err)
	}
	p.loadedID = requestID
	p.path = path
	return nil
}

func (p *Player) Play(requestID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("local player: closed")
	}
	if requestID != p.loadedID || p.path == "" {
		return fmt.Errorf("local player: play %s: not loaded: %w", requestID, core.ErrInvalidOperation)
	}
	bin, err := exec.LookPath(p.command[0])
	if err != nil {
		return core.NewCapabilityError(core.CapabilityAudioPlayback, err)
	}

	p.stopLocked()
	args := append(append([]string(nil), p.command[1:]...), p.path)
	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return core.NewCapabilityError(core.CapabilityAudioPlayback, err)
	}
	p.proc = cmd
	p.procID = requestID
	p.emitLocked(ttshandler.OutputEvent{RequestID: requestID, Kind: ttshandler.OutputStarted})

	go p.wait(cmd, requestID)
	return nil
}

func (p *Player) wait(cmd *exec.Cmd, requestID string) {
	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc == cmd {
		p.proc = nil
		p.procID = ""
	}
	if p.stopped[cmd] {
		delete(p.stopped, cmd)
		return
	}
	if err != nil {
		p.logger.Debug("player exited with error", "request_id", requestID, "error", err)
	}
	p.emitLocked(ttshandler.OutputEvent{RequestID: requestID, Kind: ttshandler.OutputEnded})
}

// Pause kills the running player. The next Play starts the clip from the
// beginning.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// SeekStart is implied: every Play restarts the clip.
func (p *Player) SeekStart() error {
	return nil
}

func (p *Player) Events() <-chan ttshandler.OutputEvent {
	return p.events
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.stopLocked()
	close(p.events)
	return os.RemoveAll(p.dir)
}

func (p *Player) stopLocked() {
	if p.proc == nil || p.proc.Process == nil {
		return
	}
	p.stopped[p.proc] = true
	if err := p.proc.Process.Kill(); err != nil {
		p.logger.Debug("kill player", "error", err)
	}
	p.proc = nil
	p.procID = ""
}

func (p *Player) emitLocked(ev ttshandler.OutputEvent) {
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("dropping player event", "request_id", ev.RequestID, "kind", ev.Kind.String())
	}
}
