package translate

import (
	"context"
	"fmt"
)

// translateSublists splits texts into sub-lists of MaxListPerTask items,
// translates them concurrently on separate provider instances and merges the
// results by sub-list index. A failed sub-list is resubmitted on its own.
func (r *run) translateSublists(ctx context.Context, texts []string, label string) ([]string, error) {
	parts := splitStrings(texts, r.opts.maxListPerTask())
	r.stats.fanouts.Add(1)
	r.opts.debug("  %s: %d texts fanned out into %d sub-lists", label, len(texts), len(parts))

	results, errs := runIndexed(ctx, parts, func(ctx context.Context, idx int, part []string) ([]string, error) {
		var out []string
		err := r.retry(ctx, fmt.Sprintf("%s sub-list %d", label, idx), func() error {
			res, err := r.dispatch(ctx, r.provider.NewInstance(), part)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
		return out, err
	})
	if err := firstError(errs); err != nil {
		return nil, err
	}

	merged := make([]string, 0, len(texts))
	for _, part := range results {
		merged = append(merged, part...)
	}
	return merged, nil
}
