package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Streamer defines the contract for streaming chat completions.
// Implementations call onDelta once per content fragment, in arrival order, and return
// when the stream is finished. Malformed fragments are skipped, not reported.
type Streamer interface {
	StreamChat(ctx context.Context, cfg LLMConfig, prompt string, onDelta func(delta string)) error
}

// StreamerFunc adapts a plain function to Streamer.
type StreamerFunc func(ctx context.Context, cfg LLMConfig, prompt string, onDelta func(delta string)) error

func (f StreamerFunc) StreamChat(ctx context.Context, cfg LLMConfig, prompt string, onDelta func(delta string)) error {
	return f(ctx, cfg, prompt, onDelta)
}

// NewStreamer picks a Streamer by provider name: "openai" (default) or "gemini".
func NewStreamer(provider string, client *http.Client, logger *slog.Logger) (Streamer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return NewOpenAIStreamer(client, logger), nil
	case "gemini":
		return NewGeminiStreamer(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
