package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is used when LLMConfig.BaseURL is empty.
const DefaultBaseURL = "https://api.openai.com/v1"

const maxEventLine = 1 << 20

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DefaultHeaderTimeout is used by NewHTTPClient when headerTimeout is not positive.
const DefaultHeaderTimeout = time.Minute

// NewHTTPClient returns a client for streaming calls. It has no overall timeout, which
// would also cut off a slow body; only the wait for response headers is bounded. Callers
// bound the whole stream through the request context.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = DefaultHeaderTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// OpenAIStreamer talks to any OpenAI-compatible /chat/completions endpoint with stream=true.
type OpenAIStreamer struct {
	client *http.Client
	logger *slog.Logger
}

// NewOpenAIStreamer returns a streamer using client, or NewHTTPClient(0) when nil.
// Upstream error bodies go to logger and never into the returned error.
func NewOpenAIStreamer(client *http.Client, logger *slog.Logger) *OpenAIStreamer {
	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OpenAIStreamer{client: client, logger: logger}
}

func (s *OpenAIStreamer) StreamChat(ctx context.Context, cfg LLMConfig, prompt string, onDelta func(string)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	reqBody, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.WarnContext(ctx, "llm endpoint rejected request",
			"status", resp.StatusCode, "model", cfg.Model, "body", strings.TrimSpace(string(body)))
		return fmt.Errorf("openai: request failed: %s", resp.Status)
	}

	if err := readEventStream(resp.Body, onDelta); err != nil {
		return fmt.Errorf("openai: read stream: %w", err)
	}
	return nil
}

// readEventStream consumes server-sent "data:" lines until [DONE] or EOF.
// Lines that are not valid chunk JSON are ignored.
func readEventStream(r io.Reader, onDelta func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" && onDelta != nil {
			onDelta(delta)
		}
	}
	return sc.Err()
}
