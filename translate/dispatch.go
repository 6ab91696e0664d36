package translate

import (
	"context"
	"fmt"
)

// dispatch sends texts to the provider as one unit. It holds a limiter slot
// only for the duration of the call and never retries.
func (r *run) dispatch(ctx context.Context, p Provider, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if err := r.limit.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.limit.release()

	r.stats.calls.Add(1)
	r.stats.texts.Add(int64(len(texts)))
	r.opts.debug("  unit of %d text(s) %s -> %s", len(texts), r.opts.sourceLang(), r.opts.TargetLang)

	out, err := p.Translate(ctx, texts, r.opts.sourceLang(), r.opts.TargetLang, r.opts.failMarker())
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrLengthMismatch, len(texts), len(out))
	}
	return out, nil
}
