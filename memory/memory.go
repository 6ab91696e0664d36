// Package memory implements the translation memory: a YAML file that maps the
// MD5 checksum of a source text to its translation, per language pair. A
// provider wrapped with Wrap answers remembered texts locally, so reruns and
// repeated texts cost no provider calls.
//
// The memory file is stored next to the output as datrans.memory.
package memory

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the default memory file name.
const FileName = "datrans.memory"

// Version is the memory file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Memory represents the datrans.memory file structure.
type Memory struct {
	Version int                          `yaml:"version"`
	Entries map[string]map[string]string `yaml:"entries"` // pair -> md5 -> translation

	mu     sync.Mutex `yaml:"-"`
	path   string     `yaml:"-"`
	hits   int64      `yaml:"-"`
	misses int64      `yaml:"-"`
}

// New returns an empty in-memory translation memory without a backing file.
func New() *Memory {
	return &Memory{
		Version: Version,
		Entries: make(map[string]map[string]string),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a memory file. Returns an empty memory bound to path if the
// file doesn't exist.
func Load(path string) (*Memory, error) {
	m := New()
	m.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version > Version {
		return nil, fmt.Errorf("%s: unsupported memory version %d", path, m.Version)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]map[string]string)
	}

	return m, nil
}

// Save writes the memory to disk, creating the directory if needed.
func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("memory file path not set")
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling memory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(m.path), err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}

	return nil
}

// Path returns the memory file path.
func (m *Memory) Path() string {
	return m.path
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// PairKey builds the key of a language pair, e.g. "en>vi".
func PairKey(sourceLang, targetLang string) string {
	return sourceLang + ">" + targetLang
}

// Lookup returns the remembered translation of text.
func (m *Memory) Lookup(sourceLang, targetLang, text string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr, ok := m.Entries[PairKey(sourceLang, targetLang)][Hash(text)]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return tr, ok
}

// Store remembers the translation of text.
func (m *Memory) Store(sourceLang, targetLang, text, translation string) {
	m.StoreBatch(sourceLang, targetLang, map[string]string{text: translation})
}

// StoreBatch remembers several text -> translation pairs at once.
func (m *Memory) StoreBatch(sourceLang, targetLang string, pairs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := PairKey(sourceLang, targetLang)
	if m.Entries[key] == nil {
		m.Entries[key] = make(map[string]string)
	}
	for text, tr := range pairs {
		m.Entries[key][Hash(text)] = tr
	}
}

// RemovePair forgets every translation of a language pair.
func (m *Memory) RemovePair(sourceLang, targetLang string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, PairKey(sourceLang, targetLang))
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of language pairs and remembered texts.
func (m *Memory) Stats() (pairs, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs = len(m.Entries)
	for _, e := range m.Entries {
		entries += len(e)
	}
	return
}

// Counters returns the lookup hits and misses since the memory was loaded.
func (m *Memory) Counters() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Pairs returns the sorted language pair keys.
func (m *Memory) Pairs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs := make([]string, 0, len(m.Entries))
	for p := range m.Entries {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

// Summary returns a human-readable summary string.
func (m *Memory) Summary() string {
	pairs, entries := m.Stats()
	if pairs == 0 {
		return "empty"
	}

	var parts []string
	for _, p := range m.Pairs() {
		m.mu.Lock()
		n := len(m.Entries[p])
		m.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d texts", p, n))
	}
	return fmt.Sprintf("%d pairs, %d texts (%s)", pairs, entries, strings.Join(parts, ", "))
}
