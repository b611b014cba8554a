// README: Per-user LLM settings; the api key, endpoint and model a user brings for itinerary generation.
package llmsettings

import (
	"errors"
	"time"

	"wanderplan/internal/ai"
)

var (
	ErrNotFound = errors.New("llm settings not found")
	ErrInvalid  = errors.New("invalid llm settings")
)

// Source tells where a resolved configuration came from.
type Source string

const (
	SourceUser   Source = "user"
	SourceServer Source = "server"
)

type Settings struct {
	UID       string
	APIKey    string
	BaseURL   string
	Model     string
	UpdatedAt time.Time
}

// PutCommand replaces the user's settings. An empty APIKey keeps the stored key.
type PutCommand struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

// View is the client-facing form. The key itself is never returned.
type View struct {
	Configured bool       `json:"configured"`
	Source     Source     `json:"source,omitempty"`
	APIKeyHint string     `json:"apiKeyHint,omitempty"`
	BaseURL    string     `json:"baseUrl,omitempty"`
	Model      string     `json:"model,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func (s Settings) view() View {
	updated := s.UpdatedAt
	return View{
		Configured: s.APIKey != "",
		Source:     SourceUser,
		APIKeyHint: maskKey(s.APIKey),
		BaseURL:    s.BaseURL,
		Model:      s.Model,
		UpdatedAt:  &updated,
	}
}

func serverView(cfg ai.LLMConfig) View {
	if cfg.Validate() != nil {
		return View{}
	}
	return View{Configured: true, Source: SourceServer, BaseURL: cfg.BaseURL, Model: cfg.Model}
}

// maskKey keeps only the last four characters.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
