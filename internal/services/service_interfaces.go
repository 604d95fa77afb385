package services

import (
	"chronic_go_backend/internal/realtime"
)

// EventPublisher receives change notifications after a mutation has been
// committed. Implementations must not block and must not fail the caller.
type EventPublisher interface {
	Publish(ch realtime.Channel, msg any)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(realtime.Channel, any) {}
