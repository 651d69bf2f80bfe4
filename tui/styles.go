package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#2a9d8f")
	mutedColor  = lipgloss.Color("244")

	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	botLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	disclaimerStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	boldStyle       = lipgloss.NewStyle().Bold(true)
	quoteStyle      = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	helperStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd166"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)
