package translate

import (
	"context"
	"errors"
)

var (
	// ErrInvalidOptions is returned by NewEngine for a bad configuration.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrLengthMismatch means a provider returned a different number of texts.
	ErrLengthMismatch = errors.New("provider returned wrong number of texts")
	// ErrProviderUnavailable means the provider failed its reachability check.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrRetriesExhausted means a task kept failing until its retry budget ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Provider translates an ordered list of texts.
//
// Translate must return exactly len(texts) results in input order. A text it
// cannot translate is replaced by failMarker; an error fails the whole call.
//
// NewInstance returns a handle that can be used concurrently with every other
// handle. Each concurrent task of the engine acquires its own.
type Provider interface {
	Translate(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error)
	NewInstance() Provider
}

// Pinger is implemented by providers that can check reachability before a
// run starts.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderFunc adapts a stateless function to Provider.
type ProviderFunc func(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error)

// Translate calls f.
func (f ProviderFunc) Translate(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error) {
	return f(ctx, texts, sourceLang, targetLang, failMarker)
}

// NewInstance returns f itself; a function carries no per-call state.
func (f ProviderFunc) NewInstance() Provider {
	return f
}
