package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/minios-linux/datrans/config"
	"github.com/minios-linux/datrans/provider"
	"github.com/minios-linux/datrans/settings"
	"github.com/minios-linux/datrans/translate"
)

func TestEngineFlagsApplyOnlyChanged(t *testing.T) {
	var ef engineFlags
	cmd := &cobra.Command{Use: "x"}
	ef.register(cmd.Flags())
	if err := cmd.Flags().Parse([]string{"--max-retries=-1", "--no-fanout", "--retry-delay", "250ms"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := ef.apply(cmd.Flags(), config.Engine{MaxConcurrent: 5, MaxRetries: 3})
	want := config.Engine{
		MaxConcurrent:        5,
		MaxRetries:           -1,
		DisableSublistFanout: true,
		RetryDelay:           250 * time.Millisecond,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("apply() = %#v, want %#v", got, want)
	}

	eo := engineOptions(got)
	if eo.MaxRetries != translate.UnlimitedRetries || !eo.DisableSublistFanout || eo.MaxConcurrent != 5 {
		t.Fatalf("engineOptions() = %#v", eo)
	}
}

func TestProviderFlagsApply(t *testing.T) {
	var pf providerFlags
	cmd := &cobra.Command{Use: "x"}
	pf.register(cmd)
	if err := cmd.Flags().Parse([]string{"--provider", "groq", "--timeout", "5s"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := pf.apply(cmd.Flags(), config.Provider{ID: "openai", Model: "gpt-4o-mini"})
	if got.ID != "groq" || got.Model != "gpt-4o-mini" || got.Timeout != 5*time.Second {
		t.Fatalf("apply() = %#v", got)
	}
}

func TestValidateProvider(t *testing.T) {
	resolve := func(cfg provider.Config) provider.Config {
		t.Helper()
		r, err := provider.Resolve(cfg)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", cfg.ID, err)
		}
		return r
	}

	tests := []struct {
		name    string
		cfg     provider.Config
		wantErr string
	}{
		{"web needs nothing", resolve(provider.Config{ID: provider.IDGoogleWeb}), ""},
		{"echo needs nothing", resolve(provider.Config{ID: provider.IDEcho}), ""},
		{"llm needs model", resolve(provider.Config{ID: provider.IDOpenAI}), "--model is required"},
		{"llm needs key", resolve(provider.Config{ID: provider.IDGroq, Model: "m"}), "requires an API key"},
		{"custom needs url", resolve(provider.Config{ID: provider.IDCustomOpenAI, Model: "m"}), "requires an endpoint URL"},
		{"ollama is keyless", resolve(provider.Config{ID: provider.IDOllama, Model: "llama3.2"}), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateProvider(tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("validateProvider() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("validateProvider() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestDescribePlan(t *testing.T) {
	got := describePlan(25, translate.Options{LargeChunkThreshold: 10, MaxRecordsPerTask: 4})
	want := []string{
		"large chunk 1/3: records 0-9, 3 chunk(s) of up to 4",
		"large chunk 2/3: records 10-19, 3 chunk(s) of up to 4",
		"large chunk 3/3: records 20-24, 2 chunk(s) of up to 4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("describePlan() = %q, want %q", got, want)
	}
	if got := describePlan(0, translate.Options{}); len(got) != 1 || got[0] != "nothing to translate" {
		t.Fatalf("describePlan(0) = %q", got)
	}
}

func TestReportPathAndLangLabel(t *testing.T) {
	if got := reportPath(filepath.Join("out", "squad_vi.jsonl")); got != filepath.Join("out", "squad_vi.report.yaml") {
		t.Fatalf("reportPath() = %q", got)
	}
	if got := langLabel("vi"); got != "vi (Vietnamese)" {
		t.Fatalf("langLabel(vi) = %q", got)
	}
	if got := langLabel("zz"); got != "zz" {
		t.Fatalf("langLabel(zz) = %q", got)
	}
}

func TestProviderTable(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	lines := providerTable()
	if len(lines) != len(provider.IDs()) {
		t.Fatalf("providerTable() has %d lines, want %d", len(lines), len(provider.IDs()))
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"google-web", "OPENAI_API_KEY", "https://api.groq.com/openai/v1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("providerTable() missing %q", want)
		}
	}
}

func TestTranslateCommandWithEchoProvider(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	data := `{"q":"first","qas_id":1}
{"q":"def class return import const let var async await while","qas_id":0}
`
	if err := os.WriteFile(input, []byte(data), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	root := newRootCmd()
	root.SetArgs([]string{
		"translate", "--root", dir,
		"-i", input, "-o", filepath.Join(dir, "out_{lang}.jsonl"),
		"--target-fields", "q", "--lang", "vi,te",
		"--provider", "echo", "--retry-delay", "1ms", "--report",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("translate: %v", err)
	}

	for _, lang := range []string{"vi", "te"} {
		got, err := os.ReadFile(filepath.Join(dir, "out_"+lang+".jsonl"))
		if err != nil {
			t.Fatalf("output for %s: %v", lang, err)
		}
		if string(got) != `{"q":"first","qas_id":1}`+"\n" {
			t.Errorf("output for %s = %q", lang, got)
		}
		if _, err := os.Stat(filepath.Join(dir, "out_"+lang+".report.yaml")); err != nil {
			t.Errorf("report for %s: %v", lang, err)
		}
	}
}

func TestTranslateCommandRequiresJob(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"translate", "--root", t.TempDir()})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), config.FileName) {
		t.Fatalf("Execute() = %v, want missing job file error", err)
	}
}

func TestInitThenDryRun(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetArgs([]string{"init", "--root", dir})
	if err := root.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	line := `{"question":"q","context":"c","answers":["a"]}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "data", "squad.jsonl"), []byte(line), 0644); err != nil {
		t.Fatal(err)
	}

	root = newRootCmd()
	root.SetArgs([]string{"translate", "--root", dir, "--dry-run"})
	if err := root.Execute(); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote output, stat err=%v", err)
	}
}

func TestAuthLoginStoresKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	root := newRootCmd()
	root.SetIn(strings.NewReader("gsk-123456789\n"))
	root.SetErr(new(strings.Builder))
	root.SetArgs([]string{"auth", "login", "--provider", "groq"})
	if err := root.Execute(); err != nil {
		t.Fatalf("auth login: %v", err)
	}
	if got := settings.GetAPIKey("groq"); got != "gsk-123456789" {
		t.Fatalf("stored key = %q", got)
	}

	root = newRootCmd()
	root.SetArgs([]string{"auth", "login", "--provider", "google-web"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for a keyless provider")
	}

	root = newRootCmd()
	root.SetArgs([]string{"auth", "logout", "--provider", "groq"})
	if err := root.Execute(); err != nil {
		t.Fatalf("auth logout: %v", err)
	}
	if got := settings.GetAPIKey("groq"); got != "" {
		t.Fatalf("key after logout = %q", got)
	}
}

func TestPlanCommandChecksEffectiveLimits(t *testing.T) {
	tests := []struct {
		args []string
		ok   bool
	}{
		{[]string{"plan", "50000"}, true},
		{[]string{"plan", "50000", "--max-records-per-task", "30000"}, false},
		{[]string{"plan", "50000", "--large-chunk-threshold", "100"}, false},
		{[]string{"plan", "50000", "--large-chunk-threshold", "100", "--max-records-per-task", "10"}, true},
		{[]string{"plan", "-3"}, false},
	}
	for _, tc := range tests {
		root := newRootCmd()
		root.SetArgs(tc.args)
		err := root.Execute()
		if tc.ok && err != nil {
			t.Errorf("%v: %v", tc.args, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%v: expected an error", tc.args)
		}
	}
}

func TestTranslateRejectsInvalidLimits(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	if err := os.WriteFile(input, []byte(`{"q":"a"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	root.SetArgs([]string{
		"translate", "--root", dir, "-i", input, "-o", filepath.Join(dir, "out.jsonl"),
		"--target-fields", "q", "--lang", "vi", "--dry-run", "--max-records-per-task", "30000",
	})
	if err := root.Execute(); !errors.Is(err, translate.ErrInvalidOptions) {
		t.Fatalf("Execute() = %v, want ErrInvalidOptions", err)
	}
}

func TestLocaleFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"translate", "--locale", "ru"}, "ru"},
		{[]string{"--locale=ru_RU", "plan", "5"}, "ru_RU"},
		{[]string{"translate", "--", "--locale", "ru"}, ""},
		{[]string{"translate", "--locale"}, ""},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := localeFromArgs(tc.args); got != tc.want {
			t.Errorf("localeFromArgs(%q) = %q, want %q", tc.args, got, tc.want)
		}
	}

	root := newRootCmd()
	root.SetArgs([]string{"version", "--locale", "ru"})
	if err := root.Execute(); err != nil {
		t.Fatalf("--locale is not accepted: %v", err)
	}
}
