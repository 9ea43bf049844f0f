package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

func chunkFrame(content string) string {
	return fmt.Sprintf("data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

func collect(t *testing.T, seq func(func(string, error) bool)) ([]string, error) {
	t.Helper()
	var out []string
	for frag, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, frag)
	}
	return out, nil
}

func TestRemoteSourceStreamsFragmentsInOrder(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, chunkFrame("Hel"))
		fmt.Fprint(w, chunkFrame("lo"))
		fmt.Fprint(w, chunkFrame(", world"))
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, chunkFrame("ignored"))
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "sk-test", time.Second, zerolog.Nop())
	history := []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}}

	frags, err := collect(t, src.Produce(context.Background(), history, "gpt-4o", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", ", world"}, frags)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.True(t, got.Stream)
	assert.Zero(t, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestRemoteSourceSkipsMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chunkFrame("a"))
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, chunkFrame("b"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "k", time.Second, zerolog.Nop())
	frags, err := collect(t, src.Produce(context.Background(), nil, "gpt", 0.3))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, frags)
}

func TestRemoteSourceTruncatedStreamIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chunkFrame("half "))
		fmt.Fprint(w, chunkFrame("an answ"))
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "k", time.Second, zerolog.Nop())
	frags, err := collect(t, src.Produce(context.Background(), nil, "gpt", 0.3))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, []string{"half ", "an answ"}, frags)
}

func TestRemoteSourceNonOKStatusIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "k", time.Second, zerolog.Nop())
	frags, err := collect(t, src.Produce(context.Background(), nil, "gpt", 0.3))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "slow down")
	assert.Empty(t, frags)
}

func TestRemoteSourceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	src := NewRemoteSource(url, "k", time.Second, zerolog.Nop())
	_, err := collect(t, src.Produce(context.Background(), nil, "gpt", 0.3))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestRemoteSourceStopsWhenConsumerStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, s := range []string{"1", "2", "3"} {
			fmt.Fprint(w, chunkFrame(s))
		}
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "k", time.Second, zerolog.Nop())
	var got []string
	for frag, err := range src.Produce(context.Background(), nil, "gpt", 0.3) {
		require.NoError(t, err)
		got = append(got, frag)
		break
	}
	assert.Equal(t, []string{"1"}, got)
}

func TestRemoteSourceListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o","object":"model","owned_by":"openai"},{"id":"o3-mini","object":"model","owned_by":"openai"}]}`)
	}))
	defer server.Close()

	src := NewRemoteSource(server.URL, "k", time.Second, zerolog.Nop())
	models, err := src.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "o3-mini"}, models)
}

func TestDecodeFrame(t *testing.T) {
	delta, err := decodeFrame(`{"choices":[{"index":0,"delta":{"content":"x\ny"}}]}`)
	require.NoError(t, err)
	assert.Equal(t, "x\ny", delta)

	delta, err = decodeFrame(`{"choices":[]}`)
	require.NoError(t, err)
	assert.Empty(t, delta)

	_, err = decodeFrame(`[1,2`)
	require.ErrorIs(t, err, domain.ErrUpstreamProtocol)
}
