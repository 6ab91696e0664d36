// Package config implements datrans.yaml, the job file.
//
// A job file declares the datasets to translate together with the provider
// and engine settings shared by all of them. Command-line flags override the
// values read from the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level datrans.yaml structure.
type File struct {
	// SourceLang is the language of the input datasets (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the default target language list for all datasets.
	Languages []string `yaml:"languages,omitempty"`
	// Provider selects and configures the translation backend.
	Provider Provider `yaml:"provider,omitempty"`
	// Engine tunes chunking, concurrency and retries.
	Engine Engine `yaml:"engine,omitempty"`
	// Datasets is the list of datasets to translate.
	Datasets []Dataset `yaml:"datasets"`

	dir string
}

// Provider configures the translation backend.
type Provider struct {
	ID          string        `yaml:"id,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Proxy       string        `yaml:"proxy,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty"`
	// Retries is the number of in-call retries after network errors and 5xx.
	Retries int `yaml:"retries,omitempty"`
}

// Engine mirrors the tunables of the translation engine. Zero values keep the
// engine defaults.
type Engine struct {
	LargeChunkThreshold  int           `yaml:"large_chunk_threshold,omitempty"`
	MaxRecordsPerTask    int           `yaml:"max_records_per_task,omitempty"`
	MaxListPerTask       int           `yaml:"max_list_per_task,omitempty"`
	DisableSublistFanout bool          `yaml:"disable_sublist_fanout,omitempty"`
	MaxTextLength        int           `yaml:"max_text_length,omitempty"`
	MaxConcurrent        int           `yaml:"max_concurrent,omitempty"`
	MaxRetries           int           `yaml:"max_retries,omitempty"`
	RetryDelay           time.Duration `yaml:"retry_delay,omitempty"`
	MaxRetryDelay        time.Duration `yaml:"max_retry_delay,omitempty"`
	FailMarker           string        `yaml:"fail_marker,omitempty"`
}

// Dataset describes one input file and how to translate it.
type Dataset struct {
	// Name is a human-readable label shown in logs.
	Name string `yaml:"name"`
	// Input is the dataset path relative to datrans.yaml (.jsonl or .json).
	Input string `yaml:"input"`
	// Output is the output path; "{lang}" is replaced by the target language.
	Output string `yaml:"output"`
	// IDKey is the name of the record identifier field (default "qas_id").
	IDKey string `yaml:"id_key,omitempty"`
	// Fields lists every field of a record, in output order.
	Fields []string `yaml:"fields"`
	// TargetFields lists the fields to translate.
	TargetFields []string `yaml:"target_fields"`
	// Languages overrides the global language list for this dataset.
	Languages []string `yaml:"languages,omitempty"`
	// SourceLang overrides the global source language.
	SourceLang string `yaml:"source_lang,omitempty"`
	// KeepCode disables the code-likelihood pre-filter.
	KeepCode bool `yaml:"keep_code,omitempty"`
	// Memory enables the translation memory stored next to the output.
	Memory bool `yaml:"memory,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default job file name.
const FileName = "datrans.yaml"

// LangPlaceholder is replaced by the target language in output paths.
const LangPlaceholder = "{lang}"

// Load loads datrans.yaml from the given directory.
// Returns nil if no datrans.yaml exists.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadFile(path)
}

// LoadFile parses the job file at path, applies defaults and validates it.
// Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.dir = filepath.Dir(path)

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// FromDataset builds a job holding only d, as if it had been loaded from a
// file in dir. Provider, engine and language defaults are taken from base
// when it is not nil.
func FromDataset(dir string, base *File, d Dataset) (*File, error) {
	f := File{dir: dir, Datasets: []Dataset{d}}
	if base != nil {
		f.SourceLang = base.SourceLang
		f.Languages = base.Languages
		f.Provider = base.Provider
		f.Engine = base.Engine
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Select returns the datasets with the given names, or all datasets when
// names is empty.
func (f *File) Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return f.Datasets, nil
	}
	var out []Dataset
	for _, name := range names {
		found := false
		for _, d := range f.Datasets {
			if d.Name == name {
				out = append(out, d)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no dataset named %q", name)
		}
	}
	return out, nil
}

func (f *File) applyDefaults() {
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	for i := range f.Datasets {
		d := &f.Datasets[i]
		if d.Name == "" {
			d.Name = strings.TrimSuffix(filepath.Base(d.Input), filepath.Ext(d.Input))
		}
		if d.IDKey == "" {
			d.IDKey = "qas_id"
		}
		if len(d.Languages) == 0 {
			d.Languages = f.Languages
		}
		if d.SourceLang == "" {
			d.SourceLang = f.SourceLang
		}
	}
}

// Validate reports every problem of the job file at once.
func (f *File) Validate() error {
	var errs []error
	if len(f.Datasets) == 0 {
		errs = append(errs, errors.New("no datasets declared"))
	}
	if f.Engine.MaxRecordsPerTask > 0 && f.Engine.LargeChunkThreshold > 0 &&
		f.Engine.MaxRecordsPerTask >= f.Engine.LargeChunkThreshold {
		errs = append(errs, fmt.Errorf("engine: max_records_per_task (%d) must be smaller than large_chunk_threshold (%d)",
			f.Engine.MaxRecordsPerTask, f.Engine.LargeChunkThreshold))
	}

	names := make(map[string]bool)
	for i, d := range f.Datasets {
		label := fmt.Sprintf("dataset #%d", i+1)
		if d.Name != "" {
			label = fmt.Sprintf("dataset %q", d.Name)
			if names[d.Name] {
				errs = append(errs, fmt.Errorf("%s is declared twice", label))
			}
			names[d.Name] = true
		}
		if d.Input == "" {
			errs = append(errs, fmt.Errorf("%s has no input", label))
		}
		if d.Output == "" {
			errs = append(errs, fmt.Errorf("%s has no output", label))
		}
		if len(d.Fields) == 0 {
			errs = append(errs, fmt.Errorf("%s has no fields", label))
		}
		if len(d.TargetFields) == 0 {
			errs = append(errs, fmt.Errorf("%s has no target_fields", label))
		}
		for _, tf := range d.TargetFields {
			if !contains(d.Fields, tf) {
				errs = append(errs, fmt.Errorf("%s: target field %q is not in fields", label, tf))
			}
		}
		if len(d.Languages) == 0 {
			errs = append(errs, fmt.Errorf("%s has no target languages", label))
		}
		if len(d.Languages) > 1 && d.Output != "" && !strings.Contains(d.Output, LangPlaceholder) {
			errs = append(errs, fmt.Errorf("%s translates into %d languages; output must contain %s", label, len(d.Languages), LangPlaceholder))
		}
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Path resolution
// ---------------------------------------------------------------------------

// Dir returns the directory containing the job file.
func (f *File) Dir() string {
	return f.dir
}

// InputPath returns the absolute input path of d.
func (f *File) InputPath(d Dataset) string {
	return f.abs(d.Input)
}

// OutputPath returns the absolute output path of d for one target language.
func (f *File) OutputPath(d Dataset, lang string) string {
	return f.abs(strings.ReplaceAll(d.Output, LangPlaceholder, lang))
}

func (f *File) abs(p string) string {
	if filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// AllLanguages returns the deduplicated union of all dataset languages.
func (f *File) AllLanguages() []string {
	seen := make(map[string]bool)
	var all []string
	for _, d := range f.Datasets {
		for _, lang := range d.Languages {
			if !seen[lang] {
				seen[lang] = true
				all = append(all, lang)
			}
		}
	}
	sort.Strings(all)
	return all
}

// ---------------------------------------------------------------------------
// Example
// ---------------------------------------------------------------------------

// Example is written by "datrans init".
const Example = `# datrans job file
source_lang: en
languages: [vi]

provider:
  id: google-web
  # id: openai
  # model: gpt-4o-mini
  timeout: 60s

engine:
  max_records_per_task: 400
  large_chunk_threshold: 20000
  max_list_per_task: 3
  max_concurrent: 8
  max_retries: 8
  retry_delay: 1s

datasets:
  - name: squad
    input: data/squad.jsonl
    output: out/squad_{lang}.jsonl
    id_key: qas_id
    fields: [question, context, answers]
    target_fields: [question, context, answers]
    memory: true
`

// WriteExample writes Example to dir/datrans.yaml unless the file exists.
func WriteExample(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(Example), 0644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
