// Package pipeline converts a dataset end to end: it reads the records,
// drops those that look like code, translates the rest with the engine,
// drops translations that still carry the fail marker and writes the
// survivors sorted by identifier.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minios-linux/datrans/filter"
	"github.com/minios-linux/datrans/memory"
	"github.com/minios-linux/datrans/record"
	"github.com/minios-linux/datrans/translate"
)

// Options controls a pipeline run.
type Options struct {
	// Engine configures the translation engine. TargetLang is required.
	Engine translate.Options
	// KeepCode disables the code-likelihood pre-filter.
	KeepCode bool
	// Detector scores texts for the pre-filter.
	Detector filter.Detector

	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits warnings.
	OnWarn func(format string, args ...any)
	// OnError emits recovered failures.
	OnError func(format string, args ...any)
	// OnProgress is called after each chunk completes.
	OnProgress func(done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logWarn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

// engineOptions fills the engine callbacks that were left unset.
func (o *Options) engineOptions() translate.Options {
	eo := o.Engine
	if eo.OnLog == nil {
		eo.OnLog = o.OnLog
	}
	if eo.OnWarn == nil {
		eo.OnWarn = o.OnWarn
	}
	if eo.OnError == nil {
		eo.OnError = o.OnError
	}
	if eo.OnProgress == nil {
		eo.OnProgress = o.OnProgress
	}
	return eo
}

// ---------------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------------

// Prefilter splits records into those to translate and the identifiers of
// records whose target fields look like code. With keepCode set nothing is
// excluded.
func Prefilter(records []*record.Record, targets []string, d filter.Detector, keepCode bool) ([]*record.Record, []int64) {
	if keepCode {
		return records, nil
	}
	kept := make([]*record.Record, 0, len(records))
	var excluded []int64
	for _, rec := range records {
		if looksLikeCode(rec, targets, d) {
			excluded = append(excluded, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	return kept, excluded
}

func looksLikeCode(rec *record.Record, targets []string, d filter.Detector) bool {
	for _, f := range targets {
		if code, _, _ := d.CheckValue(rec.Fields[f]); code {
			return true
		}
	}
	return false
}

// Postfilter drops records whose target fields still contain marker.
func Postfilter(records []*record.Record, targets []string, marker string) ([]*record.Record, []int64) {
	kept := make([]*record.Record, 0, len(records))
	var excluded []int64
	for _, rec := range records {
		if hasMarker(rec, targets, marker) {
			excluded = append(excluded, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	return kept, excluded
}

func hasMarker(rec *record.Record, targets []string, marker string) bool {
	for _, f := range targets {
		if filter.ValueContainsMarker(rec.Fields[f], marker) {
			return true
		}
	}
	return false
}

// SortByID orders records by identifier, keeping the input order of equal
// identifiers.
func SortByID(records []*record.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}

// ---------------------------------------------------------------------------
// Convert
// ---------------------------------------------------------------------------

// Convert translates records in memory and returns the surviving records
// sorted by identifier together with the run report.
func Convert(ctx context.Context, p translate.Provider, records []*record.Record, fields record.FieldSet, opts Options) ([]*record.Record, *Report, error) {
	rep := newReport(opts.Engine)
	rep.Read = len(records)

	kept, code := Prefilter(records, fields.Targets, opts.Detector, opts.KeepCode)
	rep.CodeExcluded = code
	if len(code) > 0 {
		opts.log("Excluded %d record(s) that look like code", len(code))
	}

	engine, err := translate.NewEngine(p, fields, opts.engineOptions())
	if err != nil {
		return nil, nil, err
	}
	if len(kept) == 0 {
		opts.logWarn("No records left to translate")
		rep.finish()
		return nil, rep, nil
	}

	res, err := engine.Translate(ctx, kept)
	if err != nil {
		return nil, nil, err
	}
	rep.Stats = res.Stats
	rep.Unfinished = res.Failed
	if len(res.Failed) > 0 {
		opts.logWarn("%d record(s) could not be translated after all retries", len(res.Failed))
	}

	out, failed := Postfilter(res.Records, fields.Targets, engine.FailMarker())
	rep.FailExcluded = failed
	if len(failed) > 0 {
		opts.log("Excluded %d record(s) with failed translations", len(failed))
	}

	SortByID(out)
	rep.Written = len(out)
	rep.finish()
	return out, rep, nil
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Job names the files of one dataset conversion.
type Job struct {
	// Name labels the dataset in logs and the report.
	Name string
	// Input and Output are dataset paths (.jsonl or .json).
	Input  string
	Output string
	// IDKey is the identifier field (default "qas_id").
	IDKey string
	// Fields lists the output fields in order; empty means every field of
	// the input in order of first appearance.
	Fields []string
	// TargetFields lists the fields to translate.
	TargetFields []string
	// MemoryPath enables the translation memory stored at that path.
	MemoryPath string
	// ReportPath, when set, receives the YAML report.
	ReportPath string
}

// Run converts one dataset file into one target language.
func Run(ctx context.Context, p translate.Provider, job Job, opts Options) (*Report, error) {
	ds, err := record.ReadFile(job.Input, job.IDKey)
	if err != nil {
		return nil, err
	}
	opts.log("Read %d record(s) from %s", len(ds.Records), job.Input)

	all := job.Fields
	if len(all) == 0 {
		all = ds.Fields
	}
	fields, err := record.NewFieldSet(all, job.TargetFields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Input, err)
	}

	var mem *memory.Memory
	if job.MemoryPath != "" {
		if mem, err = memory.Load(job.MemoryPath); err != nil {
			return nil, err
		}
		opts.log("Translation memory: %s", mem.Summary())
		p = memory.Wrap(p, mem)
	}

	out, rep, err := Convert(ctx, p, ds.Records, fields, opts)
	if err != nil {
		return nil, err
	}
	rep.Dataset = job.Name
	rep.Input = job.Input
	rep.Output = job.Output

	if mem != nil {
		hits, misses := mem.Counters()
		rep.MemoryHits, rep.MemoryMisses = hits, misses
		if err := mem.Save(); err != nil {
			return nil, err
		}
	}

	if err := record.WriteFile(job.Output, out, fields.All, ds.IDKey); err != nil {
		return nil, err
	}
	opts.log("Wrote %d record(s) to %s", len(out), job.Output)

	if job.ReportPath != "" {
		if err := rep.WriteYAML(job.ReportPath); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

func newReport(eo translate.Options) *Report {
	src := eo.SourceLang
	if src == "" {
		src = translate.DefaultSourceLang
	}
	return &Report{
		RunID:      uuid.NewString(),
		SourceLang: src,
		TargetLang: eo.TargetLang,
		Started:    time.Now(),
	}
}

func (r *Report) finish() {
	r.Duration = time.Since(r.Started).Round(time.Millisecond)
}
