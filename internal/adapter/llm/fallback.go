package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// maxExcerpt is the longest slice of user text, in characters, a fallback reply quotes.
const maxExcerpt = 60

const ellipsis = "..."

var fallbackReplies = []string{
	"I can't reach the language model at the moment, but I saw your message: %q. Please try again shortly and I'll give you a full answer.",
	"Here's a quick local reply while the assistant is unavailable. You wrote %q, and I'll be able to help properly once the connection is back.",
	"The model service isn't responding right now. I've kept your message %q in this chat so you can pick it up again in a moment.",
}

const fallbackNoInput = "I can't reach the language model at the moment. Please try again shortly."

// FallbackSource produces a canned reply locally, word by word. It never fails.
type FallbackSource struct {
	delay time.Duration
}

// NewFallbackSource creates a fallback source that waits delay between fragments.
func NewFallbackSource(delay time.Duration) *FallbackSource {
	return &FallbackSource{delay: delay}
}

// Name implements ReplySource.
func (f *FallbackSource) Name() string { return "fallback" }

// Produce implements ReplySource. Only the latest user message is used; model
// and temperature are ignored. The sequence ends early, without error, when ctx is done.
func (f *FallbackSource) Produce(ctx context.Context, history []domain.ChatMessage, _ string, _ float64) iter.Seq2[string, error] {
	words := splitWords(Compose(domain.LastUserContent(history)))
	return func(yield func(string, error) bool) {
		for i, w := range words {
			if i > 0 && !f.wait(ctx) {
				return
			}
			if !yield(w, nil) {
				return
			}
		}
	}
}

func (f *FallbackSource) wait(ctx context.Context) bool {
	if f.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(f.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Compose builds the fallback reply for the given user text. The same text
// always yields the same reply.
func Compose(userText string) string {
	excerpt := truncate(strings.TrimSpace(userText), maxExcerpt)
	if excerpt == "" {
		return fallbackNoInput
	}
	h := fnv.New32a()
	h.Write([]byte(excerpt))
	return fmt.Sprintf(fallbackReplies[h.Sum32()%uint32(len(fallbackReplies))], excerpt)
}

// splitWords splits s into fragments that concatenate back to s, each word
// keeping the space that follows it.
func splitWords(s string) []string {
	return strings.SplitAfter(s, " ")
}

// truncate shortens s to at most maxLen characters without splitting a rune,
// marking the cut with "...".
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
