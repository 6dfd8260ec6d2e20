package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Engine names the backend family a caller wants.
type Engine string

const (
	EngineLocal Engine = "local"
	EngineCloud Engine = "cloud"
)

// ParseEngine maps a query-string value onto an Engine. The cloud provider
// aliases ("openai", "gemini") all mean cloud; anything else means local.
func ParseEngine(s string) Engine {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cloud", "openai", "gemini":
		return EngineCloud
	default:
		return EngineLocal
	}
}

// Config holds backend endpoints and credentials, externally injected.
type Config struct {
	LocalBaseURL string // OpenAI-compatible local endpoint, e.g. Ollama
	LocalAPIKey  string
	LocalModel   string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiKey   string
	GeminiModel string

	// RequestTimeout bounds each generation call; <= 0 selects the
	// provider default.
	RequestTimeout time.Duration
}

// Selector resolves an Engine to a concrete Provider. Local requests probe
// the local model server first and silently upgrade to cloud when it is
// unreachable. Cloud requests never downgrade to local: cloud is the
// production fallback, and a cloud call without credentials is attempted
// anyway so the failure is visible in logs rather than masked.
type Selector struct {
	local     Provider
	cloud     Provider
	cloudName string
	probeURL  string
	probe     *http.Client
}

// NewSelector builds providers from configuration. The cloud slot prefers
// OpenAI when a key is present, then Gemini; with neither key it still
// carries an OpenAI provider with a placeholder key so cloud calls fail
// loudly instead of being silently rerouted.
func NewSelector(ctx context.Context, cfg Config) *Selector {
	localURL := cfg.LocalBaseURL
	if localURL == "" {
		localURL = "http://localhost:11434/v1"
	}
	localKey := cfg.LocalAPIKey
	if localKey == "" {
		localKey = "ollama"
	}

	s := &Selector{
		local: NewOpenAIProvider(OpenAIConfig{
			APIKey:  localKey,
			BaseURL: localURL,
			Model:   cfg.LocalModel,
			Timeout: cfg.RequestTimeout,
		}),
		probeURL: strings.TrimSuffix(localURL, "/v1") + "/api/tags",
		probe:    &http.Client{Timeout: 2 * time.Second},
	}

	switch {
	case cfg.OpenAIKey != "":
		s.cloudName = "openai"
		s.cloud = NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.RequestTimeout,
		})
	case cfg.GeminiKey != "":
		s.cloudName = "gemini"
		gp, err := NewGeminiProvider(ctx, GeminiConfig{
			APIKey:  cfg.GeminiKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			slog.Warn("gemini provider init failed, cloud calls will fail", "error", err)
			s.cloud = NewOpenAIProvider(OpenAIConfig{APIKey: "missing_key", Model: cfg.OpenAIModel, Timeout: cfg.RequestTimeout})
		} else {
			s.cloud = gp
		}
	default:
		s.cloudName = "none"
		s.cloud = NewOpenAIProvider(OpenAIConfig{APIKey: "missing_key", Model: cfg.OpenAIModel, Timeout: cfg.RequestTimeout})
	}

	return s
}

// Pick resolves the requested engine to a provider and a backend label for
// logging. A local request is upgraded to cloud when the local server fails
// its liveness probe.
func (s *Selector) Pick(ctx context.Context, engine Engine) (Provider, string) {
	if engine == EngineCloud {
		return s.cloud, s.cloudName
	}
	if !s.LocalAlive(ctx) {
		slog.Info("local model server unreachable, falling back to cloud", "cloud_provider", s.cloudName)
		return s.cloud, s.cloudName
	}
	return s.local, "local"
}

// LocalAlive probes the local model server with a short timeout.
func (s *Selector) LocalAlive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// CloudName reports which cloud provider is configured ("openai", "gemini",
// or "none"), for the health endpoint.
func (s *Selector) CloudName() string {
	return s.cloudName
}

// CloudAvailable reports whether real cloud credentials are configured.
func (s *Selector) CloudAvailable() bool {
	return s.cloudName != "none"
}
