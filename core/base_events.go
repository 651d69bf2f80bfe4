package core

// CapabilityNoticeEvent is a non-fatal, user-visible notice that a device
// capability is missing or was refused (no recognition engine, autoplay
// blocked, no audio player).
type CapabilityNoticeEvent struct {
	Capability Capability `json:"capability"`
	Message    string     `json:"message"`
}

func (e *CapabilityNoticeEvent) GetId() string {
	return "shared.capability_notice"
}

type WarningEvent struct {
	Error string `json:"error"`
}

func (e *WarningEvent) GetId() string {
	return "shared.warning"
}
