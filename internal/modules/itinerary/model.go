package itinerary

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"wanderplan/internal/ai"
)

// Failure kinds of a single generation attempt. All of them are retried.
var (
	ErrTransport  = errors.New("llm transport failed")
	ErrExtraction = errors.New("no itinerary json found in model output")
	ErrValidation = errors.New("itinerary failed validation")
)

// DefaultMaxRetries is the retry budget used when callers have no preference.
const DefaultMaxRetries = 3

// Number is a numeric field that models emit either as a JSON number or a numeric string.
// Free text such as "about 200 yuan" reads as zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(str, ",", ""))
		if s == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Activity is one scheduled stop of an itinerary.
type Activity struct {
	Title         string  `json:"title" validate:"required"`
	Description   string  `json:"description,omitempty"`
	Location      string  `json:"location,omitempty"`
	City          string  `json:"city,omitempty"`
	CountryCode   string  `json:"countryCode,omitempty" validate:"omitempty,countrycode"`
	StartTime     string  `json:"startTime,omitempty"`
	EndTime       string  `json:"endTime,omitempty"`
	EstimatedCost *Number `json:"estimatedCost,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// Itinerary is the structured trip plan produced by the model.
type Itinerary struct {
	Title        string          `json:"title" validate:"required"`
	Description  string          `json:"description,omitempty"`
	StartDate    string          `json:"startDate" validate:"required"`
	EndDate      string          `json:"endDate" validate:"required"`
	Budget       *Number         `json:"budget,omitempty"`
	Participants *Number         `json:"participants,omitempty"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	Activities   []Activity      `json:"activities,omitempty" validate:"dive"`
}

// Request is one generation request.
type Request struct {
	Prompt string
	// Existing activities are sent along with an instruction to modify rather than replace them.
	Existing []Activity
	// Config overrides the generator's default LLM configuration for this call.
	Config *ai.LLMConfig
}

// StreamChunk is a progress notification. Content is the accumulated text of the current
// attempt; retry notices carry Error and a human-readable Content line.
type StreamChunk struct {
	Content    string `json:"content"`
	IsComplete bool   `json:"isComplete"`
	Error      string `json:"error,omitempty"`
	Attempt    int    `json:"attempt"`
}

// ProgressFunc receives StreamChunks. It is called synchronously from Generate.
type ProgressFunc func(StreamChunk)

// Result is the terminal outcome of Generate.
type Result struct {
	Success    bool       `json:"success"`
	Itinerary  *Itinerary `json:"data,omitempty"`
	Error      string     `json:"error,omitempty"`
	RetryCount int        `json:"retryCount"`
}
