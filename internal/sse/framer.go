// Package sse frames chat stream events for a text/event-stream response.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

type chunkPayload struct {
	Type  domain.EventType `json:"type"`
	Delta string           `json:"delta"`
}

type endPayload struct {
	Type      domain.EventType `json:"type"`
	MessageID string           `json:"messageId"`
}

type errorPayload struct {
	Type  domain.EventType `json:"type"`
	Error string           `json:"error"`
}

// Encode frames event as one "data: <json>\n\n" record. All text travels as
// JSON strings, so fragments containing newlines or the frame delimiter
// cannot break framing.
func Encode(event domain.StreamEvent) ([]byte, error) {
	var payload any
	switch event.Type {
	case domain.EventTypeChunk:
		payload = chunkPayload{Type: event.Type, Delta: event.Delta}
	case domain.EventTypeEnd:
		payload = endPayload{Type: event.Type, MessageID: event.MessageID}
	case domain.EventTypeError:
		payload = errorPayload{Type: event.Type, Error: event.Error}
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + 8)
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
