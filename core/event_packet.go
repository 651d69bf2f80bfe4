package core

import (
	"time"

	"github.com/google/uuid"
)

type EventPacket struct {
	Event     IEvent
	Uid       string    // Unique identifier for tracking the event packet.
	Relayer   string    // Identifier of the component that relayed the event.
	CreatedAt time.Time // Used to order packets in session logs.
}

func NewEventPacket(event IEvent, relayer string) *EventPacket {
	return &EventPacket{
		Event:     event,
		Uid:       uuid.New().String(),
		Relayer:   relayer,
		CreatedAt: time.Now(),
	}
}
