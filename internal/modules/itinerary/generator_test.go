package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderplan/internal/ai"
)

const tokyoJSON = `{"title":"Tokyo Trip","startDate":"2024-05-01","endDate":"2024-05-03","activities":[{"title":"Senso-ji Temple","countryCode":"JP"}]}`

var testConfig = ai.LLMConfig{APIKey: "sk-test", BaseURL: "http://llm.invalid/v1", Model: "test-model"}

type reply struct {
	deltas []string
	err    error
}

// scriptedStreamer plays one reply per attempt; the last reply repeats.
type scriptedStreamer struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

func (s *scriptedStreamer) StreamChat(_ context.Context, _ ai.LLMConfig, prompt string, onDelta func(string)) error {
	s.mu.Lock()
	idx := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	r := s.replies[idx]
	for _, d := range r.deltas {
		onDelta(d)
	}
	return r.err
}

func (s *scriptedStreamer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func chunked(text string, n int) []string {
	var out []string
	for len(text) > n {
		out = append(out, text[:n])
		text = text[n:]
	}
	return append(out, text)
}

type chunkLog struct {
	chunks []StreamChunk
}

func (l *chunkLog) record(c StreamChunk) { l.chunks = append(l.chunks, c) }

func (l *chunkLog) retries() []StreamChunk {
	var out []StreamChunk
	for _, c := range l.chunks {
		if c.Error != "" {
			out = append(out, c)
		}
	}
	return out
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) ObserveAttempt(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[o]++
}

func TestGenerate_FirstAttemptSucceeds(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{{deltas: chunked("Here you go:\n"+tokyoJSON+"\nEnjoy!", 16)}}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "Tokyo, 3 days"}, log.record, 3)

	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, "Tokyo Trip", res.Itinerary.Title)
	assert.Empty(t, log.retries())

	// Accumulated content grows monotonically and ends with one completion chunk.
	require.NotEmpty(t, log.chunks)
	for i := 1; i < len(log.chunks); i++ {
		assert.True(t, strings.HasPrefix(log.chunks[i].Content, log.chunks[i-1].Content))
	}
	last := log.chunks[len(log.chunks)-1]
	assert.True(t, last.IsComplete)
	assert.Contains(t, last.Content, tokyoJSON)
	for _, c := range log.chunks[:len(log.chunks)-1] {
		assert.False(t, c.IsComplete)
	}
}

func TestGenerate_SucceedsAfterKFailures(t *testing.T) {
	for _, k := range []int{1, 2} {
		streamer := &scriptedStreamer{}
		for i := 0; i < k; i++ {
			streamer.replies = append(streamer.replies, reply{deltas: []string{"{\"title\": broken"}})
		}
		streamer.replies = append(streamer.replies, reply{deltas: []string{tokyoJSON}})
		recorder := &countingRecorder{}
		g := NewGenerator(streamer, nil, WithConfig(testConfig), WithRecorder(recorder))
		log := &chunkLog{}

		res, err := g.Generate(context.Background(), Request{Prompt: "Tokyo"}, log.record, 3)

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, k, res.RetryCount)
		assert.Len(t, log.retries(), k)
		assert.Equal(t, k+1, streamer.calls())
		assert.Equal(t, k, recorder.outcomes["extraction"])
		assert.Equal(t, 1, recorder.outcomes["success"])
	}
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{{deltas: []string{"I cannot help with that."}}}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "x"}, log.record, 2)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Itinerary)
	assert.Equal(t, 2, res.RetryCount)
	assert.Equal(t, 3, streamer.calls())
	assert.Len(t, log.retries(), 2)
	assert.Contains(t, res.Error, ErrExtraction.Error())
}

func TestGenerate_ZeroRetriesMakesOneAttempt(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{{err: errors.New("connection reset")}}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "x"}, log.record, -1)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, 1, streamer.calls())
	assert.Empty(t, log.retries())
	assert.Contains(t, res.Error, "connection reset")
}

func TestGenerate_TransportErrorIsRetried(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{
		{deltas: []string{`{"title":"half`}, err: errors.New("openai: request failed: 502 Bad Gateway")},
		{deltas: []string{tokyoJSON}},
	}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "x"}, log.record, 3)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RetryCount)
	retries := log.retries()
	require.Len(t, retries, 1)
	assert.Contains(t, retries[0].Content, "502 Bad Gateway")
}

func TestGenerate_ValidationFailureIsRetried(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{
		{deltas: []string{`{"title":"Trip","startDate":"2024-05-01","endDate":"2024-05-03","activities":[{"title":"Louvre","countryCode":"fr"}]}`}},
		{deltas: []string{tokyoJSON}},
	}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "x"}, log.record, 3)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RetryCount)
	require.Len(t, log.retries(), 1)
	assert.Contains(t, log.retries()[0].Error, "invalid country code")
}

func TestGenerate_TokyoTruncatedThenValid(t *testing.T) {
	truncated := strings.TrimSuffix(tokyoJSON, "}")
	streamer := &scriptedStreamer{replies: []reply{
		{deltas: chunked(truncated, 20)},
		{deltas: chunked(tokyoJSON, 20)},
	}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	log := &chunkLog{}

	res, err := g.Generate(context.Background(), Request{Prompt: "Tokyo, 3 days, budget 3000, 2 people"}, log.record, 3)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RetryCount)

	retries := log.retries()
	require.Len(t, retries, 1)
	assert.Contains(t, retries[0].Content, "retrying")
	assert.Contains(t, retries[0].Content, ErrExtraction.Error())

	require.Len(t, res.Itinerary.Activities, 1)
	assert.Equal(t, "Senso-ji Temple", res.Itinerary.Activities[0].Title)
	assert.Equal(t, "JP", res.Itinerary.Activities[0].CountryCode)

	// Both attempts used the same prompt.
	require.Len(t, streamer.prompts, 2)
	assert.Equal(t, streamer.prompts[0], streamer.prompts[1])
}

func TestGenerate_RequiredFieldsSurviveRoundTrip(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{{deltas: []string{tokyoJSON}}}}
	g := NewGenerator(streamer, nil, WithConfig(testConfig))

	res, err := g.Generate(context.Background(), Request{Prompt: "x"}, nil, 0)
	require.NoError(t, err)
	require.True(t, res.Success)

	b, err := json.Marshal(res.Itinerary)
	require.NoError(t, err)
	var again map[string]any
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, "Tokyo Trip", again["title"])
	assert.Equal(t, "2024-05-01", again["startDate"])
	assert.Equal(t, "2024-05-03", again["endDate"])
}

func TestGenerate_NotConfigured(t *testing.T) {
	streamer := &scriptedStreamer{replies: []reply{{deltas: []string{tokyoJSON}}}}

	_, err := NewGenerator(streamer, nil).Generate(context.Background(), Request{Prompt: "x"}, nil, 3)
	assert.ErrorIs(t, err, ai.ErrNotConfigured)

	g := NewGenerator(streamer, nil, WithConfig(ai.LLMConfig{Model: "m"}))
	_, err = g.Generate(context.Background(), Request{Prompt: "x"}, nil, 3)
	assert.ErrorIs(t, err, ai.ErrNotConfigured)
	assert.Equal(t, 0, streamer.calls())
}

func TestGenerate_RequestConfigOverridesDefault(t *testing.T) {
	var seen ai.LLMConfig
	streamer := ai.StreamerFunc(func(_ context.Context, cfg ai.LLMConfig, _ string, onDelta func(string)) error {
		seen = cfg
		onDelta(tokyoJSON)
		return nil
	})
	g := NewGenerator(streamer, nil, WithConfig(testConfig))
	override := ai.LLMConfig{APIKey: "user-key", Model: "user-model"}

	res, err := g.Generate(context.Background(), Request{Prompt: "x", Config: &override}, nil, 0)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "user-key", seen.APIKey)
}

func TestGenerate_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	streamer := ai.StreamerFunc(func(ctx context.Context, _ ai.LLMConfig, _ string, onDelta func(string)) error {
		onDelta("{")
		cancel()
		return ctx.Err()
	})
	g := NewGenerator(streamer, nil, WithConfig(testConfig))

	res, err := g.Generate(ctx, Request{Prompt: "x"}, nil, 3)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.RetryCount)
}

func TestBuildPrompt_IncludesExistingActivities(t *testing.T) {
	p := BuildPrompt(Request{Prompt: "add a museum", Existing: []Activity{{Title: "Senso-ji Temple"}}})
	assert.Contains(t, p, "Existing activities")
	assert.Contains(t, p, "Senso-ji Temple")
	assert.Contains(t, p, "Modify the existing plan")
	assert.Contains(t, p, "User request: add a museum")

	p = BuildPrompt(Request{Prompt: "Tokyo"})
	assert.NotContains(t, p, "Existing activities")
}
