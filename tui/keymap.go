package tui

// Key bindings handled in handleKey.
const (
	KeySubmit           = "enter"
	KeyReplay           = "ctrl+r"
	KeyStop             = "ctrl+s"
	KeyToggleMode       = "ctrl+t"
	KeyToggleSources    = "ctrl+o"
	KeyToggleDisclaimer = "ctrl+d"
	KeyReset            = "ctrl+n"
	KeyMic              = "ctrl+l"
	KeyQuit             = "esc"
	KeyCtrlC            = "ctrl+c"
	KeyScrollUp         = "pgup"
	KeyScrollDown       = "pgdown"
)
