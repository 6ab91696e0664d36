package memory

import (
	"context"
	"fmt"

	"github.com/minios-linux/datrans/filter"
	"github.com/minios-linux/datrans/translate"
)

// Wrap returns a provider that answers texts found in m and forwards only the
// rest to p, deduplicated. New translations are remembered unless they carry
// the fail marker.
func Wrap(p translate.Provider, m *Memory) translate.Provider {
	return &cached{next: p, mem: m}
}

type cached struct {
	next translate.Provider
	mem  *Memory
}

func (c *cached) NewInstance() translate.Provider {
	return &cached{next: c.next.NewInstance(), mem: c.mem}
}

// Ping forwards to the wrapped provider when it supports pinging.
func (c *cached) Ping(ctx context.Context) error {
	if p, ok := c.next.(translate.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *cached) Translate(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error) {
	out := make([]string, len(texts))
	var misses []string
	missAt := make(map[string][]int)

	for i, s := range texts {
		if tr, ok := c.mem.Lookup(sourceLang, targetLang, s); ok {
			out[i] = tr
			continue
		}
		if _, seen := missAt[s]; !seen {
			misses = append(misses, s)
		}
		missAt[s] = append(missAt[s], i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	translated, err := c.next.Translate(ctx, misses, sourceLang, targetLang, failMarker)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(misses) {
		return nil, fmt.Errorf("%w: sent %d, got %d", translate.ErrLengthMismatch, len(misses), len(translated))
	}

	learned := make(map[string]string, len(misses))
	for j, s := range misses {
		for _, i := range missAt[s] {
			out[i] = translated[j]
		}
		if !filter.ContainsFailMarker(translated[j], failMarker) {
			learned[s] = translated[j]
		}
	}
	c.mem.StoreBatch(sourceLang, targetLang, learned)
	return out, nil
}
