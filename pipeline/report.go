package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/datrans/translate"
)

// Report describes one pipeline run.
type Report struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Dataset    string `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Input      string `json:"input,omitempty" yaml:"input,omitempty"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	SourceLang string `json:"source_lang" yaml:"source_lang"`
	TargetLang string `json:"target_lang" yaml:"target_lang"`

	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Read is the number of input records, Written the number of output
	// records.
	Read    int `json:"read" yaml:"read"`
	Written int `json:"written" yaml:"written"`

	// CodeExcluded lists records dropped by the code pre-filter.
	CodeExcluded []int64 `json:"code_excluded,omitempty" yaml:"code_excluded,omitempty,flow"`
	// FailExcluded lists records whose translation carried the fail marker.
	FailExcluded []int64 `json:"fail_excluded,omitempty" yaml:"fail_excluded,omitempty,flow"`
	// Unfinished lists records whose chunk ran out of retries.
	Unfinished []int64 `json:"unfinished,omitempty" yaml:"unfinished,omitempty,flow"`

	MemoryHits   int64 `json:"memory_hits,omitempty" yaml:"memory_hits,omitempty"`
	MemoryMisses int64 `json:"memory_misses,omitempty" yaml:"memory_misses,omitempty"`

	Stats translate.Stats `json:"stats" yaml:"stats"`
}

// Excluded returns the number of records missing from the output.
func (r *Report) Excluded() int {
	return len(r.CodeExcluded) + len(r.FailExcluded) + len(r.Unfinished)
}

// Summary returns a one-line human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s>%s: %d read, %d written, %d code, %d failed, %d unfinished, %d calls in %s",
		r.SourceLang, r.TargetLang, r.Read, r.Written,
		len(r.CodeExcluded), len(r.FailExcluded), len(r.Unfinished),
		r.Stats.Calls, r.Duration)
}

// WriteYAML writes the report to path, creating the directory if needed.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadReport loads a report written by WriteYAML.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}
