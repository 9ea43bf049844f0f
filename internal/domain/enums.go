// Package domain defines the core domain models for the chat backend.
package domain

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// EventType is the discriminant of a chat stream event.
type EventType string

const (
	EventTypeChunk EventType = "chunk"
	EventTypeEnd   EventType = "end"
	EventTypeError EventType = "error"
)

// TurnOutcome describes how a turn ended.
type TurnOutcome string

const (
	TurnOutcomeCompleted    TurnOutcome = "completed"
	TurnOutcomeDisconnected TurnOutcome = "disconnected"
	TurnOutcomeFailed       TurnOutcome = "failed"
)
