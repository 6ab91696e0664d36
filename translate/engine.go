// Package translate is the bulk translation engine.
//
// A run over N records is cut into large chunks processed one after
// another; each large chunk is cut into chunks translated concurrently, one
// task per chunk. Inside a chunk every target field of every record becomes
// one or more units: ordered lists of texts sent to the Provider in a single
// call. Long lists fan out into concurrent sub-lists and oversized texts are
// translated sentence by sentence. Failed chunks and sub-lists are
// resubmitted, and every level reassembles its results in input order.
package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/minios-linux/datrans/record"
)

// Stats counts what a run did.
type Stats struct {
	Records   int   `json:"records" yaml:"records"`
	Chunks    int   `json:"chunks" yaml:"chunks"`
	Calls     int64 `json:"calls" yaml:"calls"`
	Texts     int64 `json:"texts" yaml:"texts"`
	Retries   int64 `json:"retries" yaml:"retries"`
	Segmented int64 `json:"segmented" yaml:"segmented"`
	Fanouts   int64 `json:"fanouts" yaml:"fanouts"`
}

// Result is the outcome of Engine.Translate.
type Result struct {
	// Records holds the translated records in input order.
	Records []*record.Record
	// Failed lists the identifiers of records whose chunk ran out of retries.
	Failed []int64
	Stats  Stats
}

// Engine drives a Provider over a dataset. It is safe to call Translate from
// several goroutines; every call gets its own limiter and counters.
type Engine struct {
	provider Provider
	fields   record.FieldSet
	opts     Options
}

// NewEngine validates the options and returns an engine for the given fields.
func NewEngine(p Provider, fields record.FieldSet, opts Options) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: provider is nil", ErrInvalidOptions)
	}
	if len(fields.Targets) == 0 {
		return nil, fmt.Errorf("%w: no target fields", ErrInvalidOptions)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{provider: p, fields: fields, opts: opts}, nil
}

// Fields returns the field set the engine translates.
func (e *Engine) Fields() record.FieldSet {
	return e.fields
}

// FailMarker returns the marker providers substitute for failed texts.
func (e *Engine) FailMarker() string {
	return e.opts.failMarker()
}

type counters struct {
	calls     atomic.Int64
	texts     atomic.Int64
	retries   atomic.Int64
	segmented atomic.Int64
	fanouts   atomic.Int64
}

// run is the state of one Translate call.
type run struct {
	provider Provider
	fields   record.FieldSet
	opts     *Options
	limit    limiter
	stats    counters
	warned   sync.Map
	done     atomic.Int64
	total    int
}

// Translate translates the target fields of records. Records are updated in
// place once their chunk succeeds; the returned Result lists them in input
// order. A chunk that exhausts its retries is left untranslated and its
// record identifiers are reported in Result.Failed.
func (e *Engine) Translate(ctx context.Context, records []*record.Record) (*Result, error) {
	if pinger, ok := e.provider.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
	}

	r := &run{
		provider: e.provider,
		fields:   e.fields,
		opts:     &e.opts,
		limit:    newLimiter(e.opts.maxConcurrent()),
		total:    len(records),
	}
	res := &Result{Records: make([]*record.Record, 0, len(records))}

	plan := Plan(len(records), e.opts)
	if len(plan) > 1 {
		r.opts.log("%d records exceed the large chunk threshold (%d); processing %d large chunks sequentially",
			len(records), e.opts.largeChunkThreshold(), len(plan))
	}

	for i, chunks := range plan {
		if len(plan) > 1 {
			first, last := chunks[0].Start, chunks[len(chunks)-1].End
			r.opts.log("Large chunk %d/%d: records %d-%d in %d chunk(s)", i+1, len(plan), first, last-1, len(chunks))
		}
		ok, failed, err := r.translateLargeChunk(ctx, records, chunks)
		if err != nil {
			return nil, err
		}
		res.Records = append(res.Records, ok...)
		res.Failed = append(res.Failed, failed...)
		res.Stats.Chunks += len(chunks)
	}

	res.Stats.Records = len(res.Records)
	res.Stats.Calls = r.stats.calls.Load()
	res.Stats.Texts = r.stats.texts.Load()
	res.Stats.Retries = r.stats.retries.Load()
	res.Stats.Segmented = r.stats.segmented.Load()
	res.Stats.Fanouts = r.stats.fanouts.Load()
	return res, nil
}

// translateLargeChunk runs one task per chunk concurrently and concatenates
// the successful chunks in order of their dataset offset.
func (r *run) translateLargeChunk(ctx context.Context, records []*record.Record, chunks []Span) ([]*record.Record, []int64, error) {
	if len(chunks) > 1 {
		r.opts.debug("Translating %d chunks concurrently", len(chunks))
	}

	results, errs := runIndexed(ctx, chunks, func(ctx context.Context, _ int, span Span) ([]*record.Record, error) {
		return r.translateChunk(ctx, span, span.slice(records))
	})

	var ok []*record.Record
	var failed []int64
	for i, span := range chunks {
		err := errs[i]
		switch {
		case err == nil:
			ok = append(ok, results[i]...)
		case ctx.Err() != nil:
			return nil, nil, ctx.Err()
		case errors.Is(err, ErrRetriesExhausted):
			r.opts.logError("Giving up on records %d-%d: %v", span.Start, span.End-1, err)
			for _, rec := range span.slice(records) {
				failed = append(failed, rec.ID)
			}
		default:
			return nil, nil, err
		}
	}
	return ok, failed, nil
}

// translateChunk translates the records of one chunk sequentially on a fresh
// provider instance. Each attempt works on clones so a failed attempt leaves
// nothing behind; on success the translations are copied into the records.
func (r *run) translateChunk(ctx context.Context, span Span, recs []*record.Record) ([]*record.Record, error) {
	var translated []*record.Record
	err := r.retry(ctx, fmt.Sprintf("chunk %d-%d", span.Start, span.End-1), func() error {
		p := r.provider.NewInstance()
		clones := make([]*record.Record, len(recs))
		for i, rec := range recs {
			c := rec.Clone()
			if err := r.translateRecord(ctx, p, c); err != nil {
				return err
			}
			clones[i] = c
		}
		translated = clones
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		rec.Fields = translated[i].Fields
	}
	done := r.done.Add(int64(len(recs)))
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(int(done), r.total)
	}
	return recs, nil
}
