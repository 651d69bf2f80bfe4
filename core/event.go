package core

type IEvent interface {
	GetId() string // Returns the unique identifier of the event.
}

// IExternalOutputEvent is implemented by events that leave the process and
// are written to the connected client.
type IExternalOutputEvent interface {
	IEvent
}

// IExternalInputEvent is implemented by events that originate outside the
// process (browser UI, browser devices). The ExternalEventHandler decodes
// them and hands them to the owning client session.
type IExternalInputEvent interface {
	IEvent
}

// EventSink receives every event a component publishes. Components never
// hold a reference to the transport; the session decides where packets go.
type EventSink interface {
	Publish(packet *EventPacket)
}

type EventSinkFunc func(packet *EventPacket)

func (f EventSinkFunc) Publish(packet *EventPacket) {
	f(packet)
}

// NopSink drops everything.
var NopSink EventSink = EventSinkFunc(func(*EventPacket) {})

// Publish wraps event into a packet tagged with relayer and hands it to sink.
// A nil sink is treated as NopSink.
func Publish(sink EventSink, event IEvent, relayer string) {
	if sink == nil || event == nil {
		return
	}
	sink.Publish(NewEventPacket(event, relayer))
}
