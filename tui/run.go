package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"trustmed/core"
	"trustmed/runner"
)

// SessionFactory builds a session whose events go to out.
type SessionFactory func(out core.EventSink) *runner.Session

// Run hosts one session in a full-screen terminal program until the user
// quits or ctx ends.
func Run(ctx context.Context, title string, newSession SessionFactory, opts ...tea.ProgramOption) error {
	m := newModel(Config{Title: title})
	program := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	session := newSession(core.EventSinkFunc(func(packet *core.EventPacket) {
		program.Send(EventMsg(packet.Event))
	}))
	defer session.Close()
	m.config.Conversation = session.Orchestrator()

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
