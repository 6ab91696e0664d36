// Package provider implements translation backends for the engine: LLM chat
// endpoints (OpenAI-compatible, Google AI, Anthropic, Ollama), the Google web
// translator and an echo backend for dry runs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/datrans/translate"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	IDOpenAI       = "openai"
	IDGroq         = "groq"
	IDGoogle       = "google"
	IDAnthropic    = "anthropic"
	IDOllama       = "ollama"
	IDCustomOpenAI = "custom-openai"
	IDGoogleWeb    = "google-web"
	IDEcho         = "echo"
)

var (
	// ErrRateLimited is returned for HTTP 429 responses after the shared
	// pause has been set; the engine resubmits the unit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnknownProvider is returned by New for an unregistered ID.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Config holds the configuration for a translation backend.
type Config struct {
	// ID is the provider identifier (openai, google, google-web, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// Temperature is the sampling temperature for LLM backends.
	Temperature float64
	// MaxRetries is how often a request is repeated after a network error or
	// a 5xx response before the call fails. 0 disables in-call retries.
	MaxRetries int
	// NeedsKey is set for backends that refuse requests without an API key.
	NeedsKey bool
	// OnLog receives debug messages when set.
	OnLog func(format string, args ...any)
}

func (c *Config) log(format string, args ...any) {
	if c.OnLog != nil {
		c.OnLog(format, args...)
	}
}

func (c *Config) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 120 * time.Second
}

func (c *Config) effectiveTemperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return 0.3
}

// DefaultConfigs returns the pre-configured provider definitions.
func DefaultConfigs() map[string]Config {
	return map[string]Config{
		IDOpenAI: {
			ID:       IDOpenAI,
			Name:     "OpenAI",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		IDGroq: {
			ID:       IDGroq,
			Name:     "Groq",
			BaseURL:  "https://api.groq.com/openai/v1",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		IDGoogle: {
			ID:       IDGoogle,
			Name:     "Google AI (Gemini)",
			BaseURL:  "https://generativelanguage.googleapis.com",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		IDAnthropic: {
			ID:       IDAnthropic,
			Name:     "Anthropic",
			BaseURL:  "https://api.anthropic.com/v1",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		IDOllama: {
			ID:      IDOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 300 * time.Second,
		},
		IDCustomOpenAI: {
			ID:      IDCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
		IDGoogleWeb: {
			ID:      IDGoogleWeb,
			Name:    "Google Translate (web)",
			BaseURL: "https://translate.google.com",
			Timeout: 30 * time.Second,
		},
		IDEcho: {
			ID:   IDEcho,
			Name: "Echo (no translation)",
		},
	}
}

// IDs returns the registered provider IDs in sorted order.
func IDs() []string {
	defs := DefaultConfigs()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve fills the empty fields of cfg from the defaults registered for
// cfg.ID.
func Resolve(cfg Config) (Config, error) {
	def, ok := DefaultConfigs()[cfg.ID]
	if !ok {
		return cfg, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.ID)
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.NeedsKey = cfg.NeedsKey || def.NeedsKey
	return cfg, nil
}

// New returns the backend for cfg.ID with defaults applied.
func New(cfg Config) (translate.Provider, error) {
	cfg, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ID == IDEcho {
		return Echo{}, nil
	}

	// One client per provider: instances share its keep-alive pool.
	client := makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout())
	rl := &rateLimitState{}

	switch cfg.ID {
	case IDGoogleWeb:
		return newGoogleWeb(cfg, client, rl), nil
	case IDGoogle:
		return newLLM(cfg, formatGeminiNative, client, rl), nil
	case IDAnthropic:
		return newLLM(cfg, formatAnthropic, client, rl), nil
	default:
		return newLLM(cfg, formatOpenAIChat, client, rl), nil
	}
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause shared by every instance of a provider)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if end := time.Now().Add(duration); end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// retryUnit is the base of the in-call backoff (2^attempt units).
var retryUnit = time.Second

func backoffWait(ctx context.Context, attempt int) error {
	wait := time.Duration(1<<attempt) * retryUnit
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
