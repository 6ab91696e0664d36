package translate

import "github.com/minios-linux/datrans/record"

// Span is the half-open range [Start, End) of a partition.
type Span struct {
	Start int
	End   int
}

// Len returns the number of items in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// partition cuts n items into consecutive spans of at most size items.
// The boundaries depend only on n and size.
func partition(n, size int) []Span {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size >= n {
		return []Span{{0, n}}
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{i, end})
	}
	return spans
}

// splitStrings divides items into sub-lists of the given size.
func splitStrings(items []string, size int) [][]string {
	spans := partition(len(items), size)
	out := make([][]string, len(spans))
	for i, s := range spans {
		out[i] = items[s.Start:s.End]
	}
	return out
}

// Plan returns the large chunks of an n-record dataset, each broken into the
// chunk spans that run concurrently. Offsets are relative to the dataset.
func Plan(n int, opts Options) [][]Span {
	var plan [][]Span
	for _, large := range partition(n, opts.largeChunkThreshold()) {
		var chunks []Span
		for _, c := range partition(large.Len(), opts.maxRecordsPerTask()) {
			chunks = append(chunks, Span{large.Start + c.Start, large.Start + c.End})
		}
		plan = append(plan, chunks)
	}
	return plan
}

// slice returns the records covered by s.
func (s Span) slice(recs []*record.Record) []*record.Record {
	return recs[s.Start:s.End]
}
