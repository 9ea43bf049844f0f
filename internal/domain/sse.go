package domain

// StreamEvent is a single event emitted on a chat stream.
type StreamEvent struct {
	Type      EventType `json:"type"`
	Delta     string    `json:"delta,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ChunkEvent carries one reply fragment.
func ChunkEvent(delta string) StreamEvent {
	return StreamEvent{Type: EventTypeChunk, Delta: delta}
}

// EndEvent marks a cleanly completed turn.
func EndEvent(messageID string) StreamEvent {
	return StreamEvent{Type: EventTypeEnd, MessageID: messageID}
}

// ErrorEvent reports an in-band failure.
func ErrorEvent(cause string) StreamEvent {
	return StreamEvent{Type: EventTypeError, Error: cause}
}
