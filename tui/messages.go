package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"trustmed/core"
)

// sessionEventMsg carries one event published by the conversation session.
type sessionEventMsg struct {
	event core.IEvent
}

// EventMsg wraps a session event for tea.Program.Send.
func EventMsg(event core.IEvent) tea.Msg {
	return sessionEventMsg{event: event}
}
