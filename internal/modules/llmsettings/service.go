package llmsettings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"wanderplan/internal/ai"
)

// Service resolves which LLM configuration a user's generation runs with.
// A user's own settings win over the server default. Base URLs are limited to an
// allowlist, so a user cannot point the server at an arbitrary host.
type Service struct {
	store    *Store
	fallback ai.LLMConfig
	allowed  map[string]struct{}
}

// NewService wires the service. store may be nil to run with the server default only.
// The fallback base URL and ai.DefaultBaseURL are always allowed.
func NewService(store *Store, fallback ai.LLMConfig, allowedBaseURLs []string) *Service {
	allowed := map[string]struct{}{normalizeURL(ai.DefaultBaseURL): {}}
	if fallback.BaseURL != "" {
		allowed[normalizeURL(fallback.BaseURL)] = struct{}{}
	}
	for _, u := range allowedBaseURLs {
		if u = normalizeURL(u); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return &Service{store: store, fallback: fallback, allowed: allowed}
}

// Resolve returns the configuration for uid. It fails with ai.ErrNotConfigured when the
// user has no usable settings and the server has no default.
func (s *Service) Resolve(ctx context.Context, uid string) (ai.LLMConfig, error) {
	if s.store != nil {
		st, err := s.store.Get(ctx, uid)
		switch {
		case err == nil && st.APIKey != "":
			cfg := ai.LLMConfig{APIKey: st.APIKey, BaseURL: st.BaseURL, Model: st.Model}
			if cfg.BaseURL == "" {
				cfg.BaseURL = s.fallback.BaseURL
			}
			if cfg.Model == "" {
				cfg.Model = s.fallback.Model
			}
			if !s.allowedURL(cfg.BaseURL) {
				return ai.LLMConfig{}, fmt.Errorf("%w: base url is no longer allowed", ai.ErrNotConfigured)
			}
			if err := cfg.Validate(); err != nil {
				return ai.LLMConfig{}, err
			}
			return cfg, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return ai.LLMConfig{}, err
		}
	}
	if s.fallback.Validate() != nil {
		return ai.LLMConfig{}, fmt.Errorf("%w: no llm settings for this user", ai.ErrNotConfigured)
	}
	return s.fallback, nil
}

// Get describes the configuration uid would run with, without exposing the key.
func (s *Service) Get(ctx context.Context, uid string) (View, error) {
	st, err := s.store.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return serverView(s.fallback), nil
	}
	if err != nil {
		return View{}, err
	}
	return st.view(), nil
}

func (s *Service) Put(ctx context.Context, uid string, cmd PutCommand) (View, error) {
	st := Settings{
		UID:     uid,
		APIKey:  strings.TrimSpace(cmd.APIKey),
		BaseURL: strings.TrimSpace(cmd.BaseURL),
		Model:   strings.TrimSpace(cmd.Model),
	}
	if st.BaseURL != "" {
		if err := s.checkBaseURL(st.BaseURL); err != nil {
			return View{}, err
		}
	}
	if st.Model == "" && s.fallback.Model == "" {
		return View{}, fmt.Errorf("%w: model is required", ErrInvalid)
	}
	if st.APIKey == "" {
		_, err := s.store.Get(ctx, uid)
		if errors.Is(err, ErrNotFound) {
			return View{}, fmt.Errorf("%w: api key is required", ErrInvalid)
		}
		if err != nil {
			return View{}, err
		}
	}
	saved, err := s.store.Upsert(ctx, st)
	if err != nil {
		return View{}, err
	}
	return saved.view(), nil
}

func (s *Service) Delete(ctx context.Context, uid string) error {
	return s.store.Delete(ctx, uid)
}

func (s *Service) checkBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: base url must be an absolute http(s) url", ErrInvalid)
	}
	if !s.allowedURL(raw) {
		return fmt.Errorf("%w: base url %s is not allowed", ErrInvalid, u.Host)
	}
	return nil
}

// allowedURL treats an empty url as the default endpoint.
func (s *Service) allowedURL(raw string) bool {
	if raw == "" {
		return true
	}
	_, ok := s.allowed[normalizeURL(raw)]
	return ok
}

func normalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
