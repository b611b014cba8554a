package ai

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no usable LLM configuration is available.
var ErrNotConfigured = errors.New("llm is not configured")

// Sampling parameters sent with every completion request.
const (
	Temperature = 0.7
	MaxTokens   = 4000
)

// LLMConfig selects the endpoint, credentials and model for one call.
// It is treated as read-only while a call is in flight.
type LLMConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

// Validate reports ErrNotConfigured when the key or model is missing.
func (c LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is empty", ErrNotConfigured)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrNotConfigured)
	}
	return nil
}
