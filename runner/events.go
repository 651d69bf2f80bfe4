package runner

import (
	"trustmed/core"
	"trustmed/events/stt"
	"trustmed/events/tts"
	"trustmed/events/ui"
)

// inputEvents lists every event a client may send.
var inputEvents = []func() core.IExternalInputEvent{
	func() core.IExternalInputEvent { return &ui.HelloEvent{} },
	func() core.IExternalInputEvent { return &ui.SubmitEvent{} },
	func() core.IExternalInputEvent { return &ui.InputChangedEvent{} },
	func() core.IExternalInputEvent { return &ui.ReplayEvent{} },
	func() core.IExternalInputEvent { return &ui.StopEvent{} },
	func() core.IExternalInputEvent { return &ui.ResetEvent{} },
	func() core.IExternalInputEvent { return &ui.ToggleSourcesEvent{} },
	func() core.IExternalInputEvent { return &ui.ToggleDisclaimerEvent{} },
	func() core.IExternalInputEvent { return &ui.SetTTSModeEvent{} },
	func() core.IExternalInputEvent { return &ui.MicToggleEvent{} },
	func() core.IExternalInputEvent { return &ui.UserGestureEvent{} },
	func() core.IExternalInputEvent { return &tts.AudioStartedEvent{} },
	func() core.IExternalInputEvent { return &tts.AudioEndedEvent{} },
	func() core.IExternalInputEvent { return &tts.AudioBlockedEvent{} },
	func() core.IExternalInputEvent { return &stt.RecognitionResultEvent{} },
	func() core.IExternalInputEvent { return &stt.RecognitionEndEvent{} },
	func() core.IExternalInputEvent { return &stt.RecognitionErrorEvent{} },
}

// RegisterInputEvents teaches the bridge how to decode every client event.
func RegisterInputEvents(h *core.ExternalEventHandler) {
	for _, factory := range inputEvents {
		h.RegisterInputEvent(factory().GetId(), factory)
	}
}
