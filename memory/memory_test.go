package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/minios-linux/datrans/translate"
)

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if h1 == Hash("different") {
		t.Errorf("Hash collision: %s", h1)
	}
}

func TestLoadNonExistent(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if m.Version != Version {
		t.Errorf("Version = %d, want %d", m.Version, Version)
	}
	if pairs, _ := m.Stats(); pairs != 0 {
		t.Errorf("Entries not empty: %v", m.Entries)
	}
	if m.Summary() != "empty" {
		t.Errorf("Summary = %q", m.Summary())
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Store("en", "vi", "Hello", "Xin chào")
	m.Store("en", "vi", "World", "Thế giới")
	m.Store("en", "te", "Hello", "హలో")

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("memory file not created at %s: %v", path, err)
	}

	m2, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	pairs, entries := m2.Stats()
	if pairs != 2 || entries != 3 {
		t.Errorf("Stats = %d pairs, %d texts, want 2, 3", pairs, entries)
	}
	if tr, ok := m2.Lookup("en", "vi", "World"); !ok || tr != "Thế giới" {
		t.Errorf("Lookup = %q, %v", tr, ok)
	}
	if !strings.Contains(m2.Summary(), "en>vi: 2 texts") {
		t.Errorf("Summary = %q", m2.Summary())
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("version: 99\nentries: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for newer version")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Fatal("expected error without a path")
	}
}

func TestLookupCounters(t *testing.T) {
	m := New()
	m.Store("en", "vi", "a", "A")
	m.Lookup("en", "vi", "a")
	m.Lookup("en", "vi", "b")
	m.Lookup("en", "te", "a")

	hits, misses := m.Counters()
	if hits != 1 || misses != 2 {
		t.Errorf("hits=%d misses=%d, want 1 and 2", hits, misses)
	}

	m.RemovePair("en", "vi")
	if _, ok := m.Lookup("en", "vi", "a"); ok {
		t.Error("pair not removed")
	}
}

// ---------------------------------------------------------------------------
// Wrap
// ---------------------------------------------------------------------------

type countingProvider struct {
	mu    sync.Mutex
	units [][]string
}

func (c *countingProvider) Translate(_ context.Context, texts []string, _, _, marker string) ([]string, error) {
	c.mu.Lock()
	c.units = append(c.units, append([]string(nil), texts...))
	c.mu.Unlock()
	out := make([]string, len(texts))
	for i, s := range texts {
		if s == "bad" {
			out[i] = marker
			continue
		}
		out[i] = strings.ToUpper(s)
	}
	return out, nil
}

func (c *countingProvider) NewInstance() translate.Provider { return c }

func TestWrapServesRememberedTexts(t *testing.T) {
	next := &countingProvider{}
	m := New()
	m.Store("en", "vi", "known", "KNOWN!")
	p := Wrap(next, m)

	got, err := p.Translate(context.Background(), []string{"known", "new", "new", "bad"}, "en", "vi", "FAIL")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []string{"KNOWN!", "NEW", "NEW", "FAIL"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(next.units) != 1 || len(next.units[0]) != 2 {
		t.Fatalf("forwarded units = %q, want one unit [new bad]", next.units)
	}

	// second run is served entirely from memory except the failed text
	got, err = p.NewInstance().Translate(context.Background(), []string{"new", "known"}, "en", "vi", "FAIL")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got[0] != "NEW" || got[1] != "KNOWN!" {
		t.Errorf("got %q", got)
	}
	if len(next.units) != 1 {
		t.Errorf("provider called again: %q", next.units)
	}
	if _, ok := m.Lookup("en", "vi", "bad"); ok {
		t.Error("fail marker translation was remembered")
	}
}

type pingFail struct{ countingProvider }

func (*pingFail) Ping(context.Context) error { return errors.New("down") }

func TestWrapForwardsPing(t *testing.T) {
	p := Wrap(&pingFail{}, New())
	if err := p.(translate.Pinger).Ping(context.Background()); err == nil {
		t.Error("ping failure not forwarded")
	}
	p = Wrap(&countingProvider{}, New())
	if err := p.(translate.Pinger).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
