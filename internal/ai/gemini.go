package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiStreamer implements Streamer using Google's Gemini models.
// LLMConfig.BaseURL is ignored; the SDK picks the endpoint.
type GeminiStreamer struct{}

// NewGeminiStreamer returns a Gemini-backed Streamer.
func NewGeminiStreamer() *GeminiStreamer {
	return &GeminiStreamer{}
}

func (GeminiStreamer) StreamChat(ctx context.Context, cfg LLMConfig, prompt string, onDelta func(string)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(Temperature)
	model.SetMaxOutputTokens(MaxTokens)

	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini: stream: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok && txt != "" && onDelta != nil {
				onDelta(string(txt))
			}
		}
	}
}
