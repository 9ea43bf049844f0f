// Package llm provides the reply sources a chat turn draws its assistant text from.
package llm

import (
	"context"
	"iter"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// ReplySource produces an assistant reply as an ordered, lazy sequence of text
// fragments. Pulling stops as soon as the consumer stops iterating. A non-nil
// error ends the sequence.
type ReplySource interface {
	// Name identifies the variant in logs and metrics.
	Name() string

	// Produce streams the reply for history.
	Produce(ctx context.Context, history []domain.ChatMessage, model string, temperature float64) iter.Seq2[string, error]
}

// ModelLister lists the model identifiers a caller may choose from.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Ensure the variants implement the interfaces.
var (
	_ ReplySource = (*RemoteSource)(nil)
	_ ReplySource = (*FallbackSource)(nil)
	_ ModelLister = (*RemoteSource)(nil)
	_ ModelLister = StaticModels(nil)
)
