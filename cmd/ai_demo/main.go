// README: Command-line itinerary generator; streams model output to stderr and prints the parsed plan.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"wanderplan/internal/ai"
	"wanderplan/internal/config"
	"wanderplan/internal/modules/itinerary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	retries := pflag.IntP("retries", "r", cfg.AI.MaxRetries, "parse retries after the first attempt")
	model := pflag.StringP("model", "m", cfg.AI.Model, "model name")
	quiet := pflag.BoolP("quiet", "q", false, "do not echo the model output")
	pflag.Parse()

	prompt := strings.TrimSpace(strings.Join(pflag.Args(), " "))
	if prompt == "" {
		prompt = "Three relaxed days in Kyoto in early April for two people, temples and food"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.AI.StreamTimeout)
	defer cancel()

	logger := newLogger(cfg.Log.Level)
	streamer, err := ai.NewStreamer(cfg.AI.Provider, ai.NewHTTPClient(cfg.AI.HeaderTimeout), logger)
	if err != nil {
		log.Fatal(err)
	}
	gen := itinerary.NewGenerator(streamer, logger,
		itinerary.WithConfig(ai.LLMConfig{APIKey: cfg.AI.APIKey, BaseURL: cfg.AI.BaseURL, Model: *model}))

	fmt.Fprintf(os.Stderr, "prompt: %s\n\n", prompt)
	var printed int
	res, err := gen.Generate(ctx, itinerary.Request{Prompt: prompt}, func(c itinerary.StreamChunk) {
		if *quiet {
			return
		}
		if c.Error != "" {
			fmt.Fprint(os.Stderr, c.Content)
			printed = 0
			return
		}
		if len(c.Content) > printed {
			fmt.Fprint(os.Stderr, c.Content[printed:])
		}
		printed = len(c.Content)
	}, *retries)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	fmt.Fprintln(os.Stderr)
	if !res.Success {
		log.Fatalf("no usable itinerary after %d retries: %s", res.RetryCount, res.Error)
	}

	out := struct {
		*itinerary.Itinerary
		Days []itinerary.Day `json:"days"`
	}{res.Itinerary, itinerary.GroupByDay(res.Itinerary.Activities)}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}
