package domain

import (
	"fmt"
	"time"
)

// EventType enumerates the lifecycle events written by the control layer.
type EventType string

const (
	EventSetup    EventType = "setup"
	EventStart    EventType = "start"
	EventPause    EventType = "pause"
	EventResume   EventType = "resume"
	EventStop     EventType = "stop"
	EventRecorded EventType = "recorded"
	EventTag      EventType = "tag"
)

// ParseEventType validates a stored event type string.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventSetup, EventStart, EventPause, EventResume, EventStop, EventRecorded, EventTag:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// OperationalEvent is one entry of the append-only run event log.
type OperationalEvent struct {
	ID         int64
	Type       EventType
	OccurredAt time.Time
	EndedAt    *time.Time
	Tag        string
}
