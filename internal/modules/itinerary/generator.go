package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"wanderplan/internal/ai"
)

// Recorder observes attempt outcomes. Outcomes are "success", "transport",
// "extraction" and "validation".
type Recorder interface {
	ObserveAttempt(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string) {}

// Option customises a Generator.
type Option func(*Generator)

// WithExtractor replaces the default GreedyBraces extractor.
func WithExtractor(e Extractor) Option {
	return func(g *Generator) { g.extract = e }
}

// WithRecorder attaches an attempt recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithConfig sets the default LLM configuration.
func WithConfig(cfg ai.LLMConfig) Option {
	return func(g *Generator) { g.cfg = &cfg }
}

// Generator turns a natural-language request into a validated Itinerary by streaming a
// chat completion and retrying the whole round trip on any failure.
type Generator struct {
	streamer ai.Streamer
	extract  Extractor
	recorder Recorder
	logger   *slog.Logger
	cfg      *ai.LLMConfig
}

func NewGenerator(streamer ai.Streamer, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Generator{
		streamer: streamer,
		extract:  GreedyBraces,
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) config(req Request) (ai.LLMConfig, error) {
	if req.Config != nil {
		return *req.Config, req.Config.Validate()
	}
	if g.cfg == nil {
		return ai.LLMConfig{}, ai.ErrNotConfigured
	}
	return *g.cfg, g.cfg.Validate()
}

// Generate runs up to maxRetries+1 attempts, in sequence, with the same prompt.
// Every outcome is reported through Result; the error return is reserved for a missing
// LLM configuration and for ctx being done, neither of which is retried.
// A negative maxRetries is treated as zero.
func (g *Generator) Generate(ctx context.Context, req Request, onProgress ProgressFunc, maxRetries int) (Result, error) {
	cfg, err := g.config(req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, err
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	notify := func(c StreamChunk) {
		if onProgress != nil {
			onProgress(c)
		}
	}

	prompt := BuildPrompt(req)
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Success: false, Error: err.Error(), RetryCount: attempt}, err
		}

		it, err := g.attempt(ctx, cfg, prompt, attempt, notify)
		if err == nil {
			g.recorder.ObserveAttempt("success")
			g.logger.InfoContext(ctx, "itinerary generated",
				"title", it.Title, "activities", len(it.Activities), "retries", attempt)
			return Result{Success: true, Itinerary: it, RetryCount: attempt}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Success: false, Error: err.Error(), RetryCount: attempt}, ctxErr
		}

		g.recorder.ObserveAttempt(outcome(err))
		g.logger.WarnContext(ctx, "itinerary attempt failed", "attempt", attempt+1, "error", err)
		lastErr = err
		if attempt < maxRetries {
			notify(StreamChunk{
				Content: fmt.Sprintf("\n\nParse failed, retrying (attempt %d of %d)...\nError: %v\n\n", attempt+1, maxRetries, err),
				Error:   err.Error(),
				Attempt: attempt + 1,
			})
		}
	}

	return Result{Success: false, Error: lastErr.Error(), RetryCount: maxRetries}, nil
}

func (g *Generator) attempt(ctx context.Context, cfg ai.LLMConfig, prompt string, attempt int, notify ProgressFunc) (*Itinerary, error) {
	var acc strings.Builder
	err := g.streamer.StreamChat(ctx, cfg, prompt, func(delta string) {
		acc.WriteString(delta)
		notify(StreamChunk{Content: acc.String(), Attempt: attempt})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	text := acc.String()
	notify(StreamChunk{Content: text, IsComplete: true, Attempt: attempt})
	return g.Parse(text)
}

// Parse extracts, decodes and validates an itinerary from raw model output.
func (g *Generator) Parse(text string) (*Itinerary, error) {
	raw, err := g.extract(text)
	if err != nil {
		if !errors.Is(err, ErrExtraction) {
			err = fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return nil, err
	}

	var it Itinerary
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s must be %s, got %s", ErrValidation, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: invalid json: %v", ErrExtraction, err)
	}
	if err := Validate(it); err != nil {
		return nil, err
	}
	return &it, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	default:
		return "validation"
	}
}
