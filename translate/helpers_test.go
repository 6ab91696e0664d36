package translate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/minios-linux/datrans/record"
)

func tag(s string) string { return "<" + s + ">" }

// tagProvider wraps every text in angle brackets.
var tagProvider = ProviderFunc(func(_ context.Context, texts []string, _, _, _ string) ([]string, error) {
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = tag(s)
	}
	return out, nil
})

// identityProvider returns its input.
var identityProvider = ProviderFunc(func(_ context.Context, texts []string, _, _, _ string) ([]string, error) {
	return append([]string(nil), texts...), nil
})

// recorder records every unit it receives and delegates to fn.
type recorder struct {
	mu        sync.Mutex
	calls     [][]string
	instances int
	fn        func(texts []string) ([]string, error)
}

func (r *recorder) Translate(ctx context.Context, texts []string, src, dst, marker string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), texts...))
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(texts)
	}
	return tagProvider(ctx, texts, src, dst, marker)
}

func (r *recorder) NewInstance() Provider {
	r.mu.Lock()
	r.instances++
	r.mu.Unlock()
	return r
}

func (r *recorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// testOptions returns options with fast retries.
func testOptions() Options {
	return Options{
		TargetLang:    "vi",
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	}
}

func testFields(t *testing.T) record.FieldSet {
	t.Helper()
	fs, err := record.NewFieldSet([]string{"question", "answers", "score"}, []string{"question", "answers"})
	if err != nil {
		t.Fatalf("NewFieldSet: %v", err)
	}
	return fs
}

func makeRecords(n int) []*record.Record {
	recs := make([]*record.Record, n)
	for i := range recs {
		recs[i] = &record.Record{
			ID: int64(i),
			Fields: map[string]record.Value{
				"question": record.Text(fmt.Sprintf("q%d", i)),
				"answers":  record.List(fmt.Sprintf("a%d.0", i), fmt.Sprintf("a%d.1", i)),
				"score":    {Kind: record.KindRaw, Raw: []byte(fmt.Sprint(i))},
			},
		}
	}
	return recs
}

func newTestRun(p Provider, fs record.FieldSet, opts Options) *run {
	return &run{
		provider: p,
		fields:   fs,
		opts:     &opts,
		limit:    newLimiter(opts.maxConcurrent()),
	}
}

// checkTranslated verifies that recs are makeRecords output, in order,
// translated by tagProvider.
func checkTranslated(t *testing.T, recs []*record.Record, n int) {
	t.Helper()
	if len(recs) != n {
		t.Fatalf("got %d records, want %d", len(recs), n)
	}
	for i, rec := range recs {
		if rec.ID != int64(i) {
			t.Fatalf("position %d holds record %d", i, rec.ID)
		}
		if got, want := rec.Fields["question"].Text, tag(fmt.Sprintf("q%d", i)); got != want {
			t.Errorf("record %d question = %q, want %q", i, got, want)
		}
		answers := rec.Fields["answers"].List
		if len(answers) != 2 || answers[0] != tag(fmt.Sprintf("a%d.0", i)) || answers[1] != tag(fmt.Sprintf("a%d.1", i)) {
			t.Errorf("record %d answers = %q", i, answers)
		}
		if got := string(rec.Fields["score"].Raw); got != fmt.Sprint(i) {
			t.Errorf("record %d score = %s, want untouched", i, got)
		}
	}
}
