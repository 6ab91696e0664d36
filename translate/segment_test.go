package translate

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello world. How are you? Fine.", []string{"Hello world.", "How are you?", "Fine."}},
		{"Mr. Smith went home. He slept.", []string{"Mr. Smith went home.", "He slept."}},
		{"J. R. R. Tolkien wrote. Yes", []string{"J. R. R. Tolkien wrote.", "Yes"}},
		{"See e.g. this. Next", []string{"See e.g. this.", "Next"}},
		{"No terminator at all", []string{"No terminator at all"}},
		{"Version 2.5 is out.", []string{"Version 2.5 is out."}},
		{"", nil},
		{"   ", nil},
	}
	for _, tc := range tests {
		if got := SplitSentences(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitSentences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPackSentences(t *testing.T) {
	got := PackSentences([]string{"aaaa.", "bbbb.", "cccc."}, 12)
	want := []string{"aaaa. bbbb.", "cccc."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PackSentences = %q, want %q", got, want)
	}

	if got := PackSentences(nil, 12); len(got) != 0 {
		t.Errorf("PackSentences(nil) = %q", got)
	}
}

func TestPackSentencesHardSplitsLongSentence(t *testing.T) {
	long := strings.Repeat("x", 30)
	got := PackSentences([]string{long}, 10)
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3: %q", len(got), got)
	}
	for _, c := range got {
		if len(c) != 10 {
			t.Errorf("chunk %q has length %d", c, len(c))
		}
	}

	got = PackSentences([]string{"one two three four five six"}, 10)
	if strings.Join(got, " ") != "one two three four five six" {
		t.Errorf("word split lost text: %q", got)
	}
	for _, c := range got {
		if utf8.RuneCountInString(c) > 10 {
			t.Errorf("chunk %q exceeds limit", c)
		}
	}
}

func longText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "Sentence number %d is here.", i)
	}
	return b.String()
}

func TestSegmentedTextRoundTrip(t *testing.T) {
	opts := testOptions()
	opts.MaxTextLength = 100
	rec := &recorder{fn: func(texts []string) ([]string, error) { return texts, nil }}
	r := newTestRun(rec, testFields(t), opts)

	text := longText(30)
	got, err := r.translateText(context.Background(), rec, text, "test")
	if err != nil {
		t.Fatalf("translateText: %v", err)
	}

	chunks := SegmentText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 100 {
			t.Errorf("chunk exceeds ceiling: %q", c)
		}
	}
	if want := strings.Join(chunks, SegmentSeparator); got != want {
		t.Errorf("rejoined text = %q, want %q", got, want)
	}
	// the chunks travel as one unit
	if rec.callCount() != 1 || len(rec.calls[0]) != len(chunks) {
		t.Errorf("calls = %d, want one call of %d chunks", rec.callCount(), len(chunks))
	}
	if r.stats.segmented.Load() != 1 {
		t.Errorf("segmented = %d, want 1", r.stats.segmented.Load())
	}
}

func TestShortTextIsNotSegmented(t *testing.T) {
	opts := testOptions()
	opts.MaxTextLength = 100
	rec := &recorder{}
	r := newTestRun(rec, testFields(t), opts)

	got, err := r.translateText(context.Background(), rec, "Short. Text.", "test")
	if err != nil {
		t.Fatalf("translateText: %v", err)
	}
	if got != "<Short. Text.>" {
		t.Errorf("got %q", got)
	}
	if r.stats.segmented.Load() != 0 {
		t.Error("short text was segmented")
	}
}

func TestSegmentWithoutSentencesCostsNoCall(t *testing.T) {
	rec := &recorder{}
	r := newTestRun(rec, testFields(t), testOptions())

	got, err := r.segment(context.Background(), rec, "   \n\t ")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if got != "   \n\t " {
		t.Errorf("got %q, want input unchanged", got)
	}
	if rec.callCount() != 0 {
		t.Errorf("provider called %d times", rec.callCount())
	}
}
