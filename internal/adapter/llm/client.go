package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// RemoteSource streams replies from an OpenAI-compatible completion service.
type RemoteSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	models     *openai.Client
	logger     zerolog.Logger
}

// NewRemoteSource creates a remote reply source. timeout bounds non-streaming
// calls only; a stream runs until the upstream ends it or ctx is done.
func NewRemoteSource(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *RemoteSource {
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &RemoteSource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		models:     openai.NewClientWithConfig(cfg),
		logger:     logger,
	}
}

// Name implements ReplySource.
func (c *RemoteSource) Name() string { return "remote" }

// completionRequest mirrors openai.ChatCompletionRequest but always sends
// temperature, including zero.
type completionRequest struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float64                        `json:"temperature"`
	Stream      bool                           `json:"stream"`
}

// Produce implements ReplySource. Connection and status failures, and a body
// that ends without [DONE], surface as domain.ErrUpstreamUnavailable. Frames
// that fail to decode are skipped.
func (c *RemoteSource) Produce(ctx context.Context, history []domain.ChatMessage, model string, temperature float64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.openStream(ctx, history, model, temperature)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				yield("", fmt.Errorf("%w: failed to read stream: %v", domain.ErrUpstreamUnavailable, err))
				return
			}
			eof := err != nil

			data, ok := frameData(line)
			if ok {
				if data == "[DONE]" {
					return
				}
				delta, decodeErr := decodeFrame(data)
				if decodeErr != nil {
					c.logger.Warn().Err(decodeErr).Msg("skipping undecodable upstream frame")
				} else if delta != "" && !yield(delta, nil) {
					return
				}
			}
			if eof {
				yield("", fmt.Errorf("%w: stream ended before [DONE]", domain.ErrUpstreamUnavailable))
				return
			}
		}
	}
}

func (c *RemoteSource) openStream(ctx context.Context, history []domain.ChatMessage, model string, temperature float64) (*http.Response, error) {
	req := completionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(history)),
		Temperature: temperature,
		Stream:      true,
	}
	for _, m := range history {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrUpstreamUnavailable, err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp openai.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%w: LLM API error [%d]: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: LLM API error [%d]: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}

// frameData extracts the payload of an SSE data line.
func frameData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

// decodeFrame returns the text delta carried by one upstream frame. A frame
// without choices or content decodes to an empty delta.
func decodeFrame(data string) (string, error) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamProtocol, err)
	}
	var sb strings.Builder
	for _, choice := range chunk.Choices {
		sb.WriteString(choice.Delta.Content)
	}
	return sb.String(), nil
}

// ListModels implements ModelLister using the service's /v1/models endpoint.
func (c *RemoteSource) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.models.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list models: %v", domain.ErrUpstreamUnavailable, err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// setHeaders sets common request headers.
func (c *RemoteSource) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
