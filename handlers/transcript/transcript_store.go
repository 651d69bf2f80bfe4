package transcript

import (
	"fmt"
	"sync"

	"trustmed/core"
)

// Store is the ordered, in-memory conversation log. Indices are stable for
// the lifetime of the store: messages are only ever appended, or the whole
// log is replaced on reset.
type Store struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex // keeps listener deliveries in mutation order
	messages []core.Message
	onChange []func([]core.Message)
	logger   *core.Logger
}

func NewStore(logger *core.Logger, seed ...core.Message) *Store {
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &Store{logger: logger}
	for _, m := range seed {
		s.messages = append(s.messages, m.Clone())
	}
	return s
}

// OnChange registers fn to receive a snapshot after every mutation. fn runs
// outside the store lock.
func (s *Store) OnChange(fn func([]core.Message)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Append adds msg at the end and returns its index.
func (s *Store) Append(msg core.Message) int {
	s.mu.Lock()
	s.messages = append(s.messages, msg.Clone())
	index := len(s.messages) - 1
	s.mu.Unlock()

	s.notify()
	return index
}

// ReplaceAll swaps the whole transcript, used by reset.
func (s *Store) ReplaceAll(msgs []core.Message) {
	next := make([]core.Message, len(msgs))
	for i, m := range msgs {
		next[i] = m.Clone()
	}

	s.mu.Lock()
	s.messages = next
	s.mu.Unlock()

	s.notify()
}

func (s *Store) ToggleSourcesVisible(index int) error {
	return s.toggle(index, "sources", func(m *core.Message) { m.ShowSources = !m.ShowSources })
}

func (s *Store) ToggleDisclaimerVisible(index int) error {
	return s.toggle(index, "disclaimer", func(m *core.Message) { m.ShowDisclaimer = !m.ShowDisclaimer })
}

func (s *Store) toggle(index int, what string, flip func(*core.Message)) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.messages) {
		n := len(s.messages)
		s.mu.Unlock()
		err := fmt.Errorf("transcript: toggle %s at index %d of %d: %w", what, index, n, core.ErrInvalidOperation)
		s.logger.Warn(err.Error())
		return err
	}
	flip(&s.messages[index])
	s.mu.Unlock()

	s.notify()
	return nil
}

// Snapshot returns a deep copy of the transcript in insertion order.
func (s *Store) Snapshot() []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []core.Message {
	out := make([]core.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

func (s *Store) At(index int) (core.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.messages) {
		return core.Message{}, false
	}
	return s.messages[index].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastAssistantIndex returns -1 when there is no assistant message.
func (s *Store) LastAssistantIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsAssistant() {
			return i
		}
	}
	return -1
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	if len(s.onChange) == 0 {
		s.mu.RUnlock()
		return
	}
	snapshot := s.snapshotLocked()
	listeners := append([]func([]core.Message){}, s.onChange...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
