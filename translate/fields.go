package translate

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/minios-linux/datrans/record"
)

// translateRecord replaces every non-empty target field of rec with its
// translation, field by field in dataset order.
func (r *run) translateRecord(ctx context.Context, p Provider, rec *record.Record) error {
	for _, name := range r.fields.TargetsInOrder() {
		v, ok := rec.Fields[name]
		if !ok || v.IsEmpty() {
			continue
		}
		label := fmt.Sprintf("record %d field %q", rec.ID, name)

		switch v.Kind {
		case record.KindText:
			out, err := r.translateText(ctx, p, v.Text, label)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			rec.Fields[name] = record.Text(out)

		case record.KindList:
			out, err := r.translateList(ctx, p, v.List, label)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			rec.Fields[name] = record.Value{Kind: record.KindList, List: out}

		default:
			r.warnOnce(name, "field %q holds non-text values; left untouched", name)
		}
	}
	return nil
}

func (r *run) translateText(ctx context.Context, p Provider, text, label string) (string, error) {
	if n := utf8.RuneCountInString(text); n > r.opts.maxTextLength() {
		r.opts.logWarn("%s is %d characters long (limit %d); translating by sentences", label, n, r.opts.maxTextLength())
		return r.segment(ctx, p, text)
	}
	out, err := r.dispatch(ctx, p, []string{text})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// translateList resolves oversized elements by segmentation, then sends the
// rest as one unit, or as concurrent sub-lists when the list is long.
func (r *run) translateList(ctx context.Context, p Provider, items []string, label string) ([]string, error) {
	out := make([]string, len(items))
	var pending []string
	var positions []int

	for i, s := range items {
		if n := utf8.RuneCountInString(s); n > r.opts.maxTextLength() {
			r.opts.logWarn("%s element %d is %d characters long (limit %d); translating by sentences", label, i, n, r.opts.maxTextLength())
			t, err := r.segment(ctx, p, s)
			if err != nil {
				return nil, err
			}
			out[i] = t
			continue
		}
		pending = append(pending, s)
		positions = append(positions, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	var translated []string
	var err error
	if !r.opts.DisableSublistFanout && len(pending) > r.opts.maxListPerTask() {
		translated, err = r.translateSublists(ctx, pending, label)
	} else {
		translated, err = r.dispatch(ctx, p, pending)
	}
	if err != nil {
		return nil, err
	}
	for j, i := range positions {
		out[i] = translated[j]
	}
	return out, nil
}

func (r *run) warnOnce(key, format string, args ...any) {
	if _, loaded := r.warned.LoadOrStore(key, true); !loaded {
		r.opts.logWarn(format, args...)
	}
}
