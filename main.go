// Command datrans performs bulk dataset translation through rate-limited translation services.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/datrans/config"
	"github.com/minios-linux/datrans/filter"
	"github.com/minios-linux/datrans/i18n"
	"github.com/minios-linux/datrans/langmeta"
	"github.com/minios-linux/datrans/memory"
	"github.com/minios-linux/datrans/pipeline"
	"github.com/minios-linux/datrans/record"
	"github.com/minios-linux/datrans/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorGray   = "\033[0;90m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

func logDebug(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGray+"[DEBUG]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var (
	rootDir string
	locale  string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "datrans",
		Short: i18n.T("Bulk translation of structured text datasets"),
		Long: `datrans: bulk translation of structured text datasets.

Translates the text fields of JSON Lines / JSON datasets through a
translation service, keeping every record's fields together and the
original record order. Large datasets are cut into chunks translated
concurrently; failed chunks are retried with exponential backoff.

Commands:
  init        Write an example datrans.yaml job file
  translate   Translate datasets (from datrans.yaml or flags)
  plan        Show how a dataset of N records is chunked
  serve       Run the HTTP translation service
  providers   List translation providers
  languages   List known language codes
  auth        Manage provider API keys`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory containing datrans.yaml")
	root.PersistentFlags().StringVar(&locale, "locale", "", "Message language (default: $"+i18n.EnvLocale+", $LANG)")

	root.AddCommand(
		newInitCmd(),
		newTranslateCmd(),
		newPlanCmd(),
		newServeCmd(),
		newProvidersCmd(),
		newLanguagesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	// Help texts are translated while the commands are built, so the
	// locale is needed before cobra parses the flags.
	i18n.Init(localeFromArgs(os.Args[1:]))
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// localeFromArgs returns the value of --locale in args, or "".
func localeFromArgs(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--locale="); ok {
			return v
		}
		if a == "--locale" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("datrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write an example datrans.yaml job file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteExample(rootDir)
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Created %s"), path)
			logInfo(i18n.T("Edit the datasets section, then run 'datrans translate'"))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	jobFile  string
	datasets []string
	langs    []string

	// ad-hoc dataset
	input, output, idKey, sourceLang string
	fields, targets                  []string
	keepCode, useMemory, report      bool

	provider providerFlags
	engine   engineFlags

	verbose, dryRun bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Translate datasets"),
		Long: `Translate the datasets declared in datrans.yaml, or a single dataset
described by --input/--output/--target-fields.

Flags override the values of the job file.

Examples:
  # Translate every dataset of ./datrans.yaml
  datrans translate

  # Translate one file into Vietnamese and Telugu with Google Translate
  datrans translate --input squad.jsonl --output squad_{lang}.jsonl \
      --target-fields question,context,answers --lang vi,te --provider google-web

  # Use an LLM and remember translations between runs
  datrans translate --provider openai --model gpt-4o-mini --memory

  # Show the chunk plan and the code filter result without translating
  datrans translate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, &a)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&a.jobFile, "file", "f", "", "Job file (default: <root>/datrans.yaml)")
	fs.StringSliceVar(&a.datasets, "dataset", nil, "Datasets of the job file to translate (default: all)")
	fs.StringSliceVar(&a.langs, "lang", nil, "Target languages (comma-separated)")

	fs.StringVarP(&a.input, "input", "i", "", "Input dataset (.jsonl or .json)")
	fs.StringVarP(&a.output, "output", "o", "", "Output dataset; {lang} is replaced by the target language")
	fs.StringVar(&a.idKey, "id-key", record.DefaultIDKey, "Record identifier field")
	fs.StringVar(&a.sourceLang, "source-lang", "", "Source language (default: en)")
	fs.StringSliceVar(&a.fields, "fields", nil, "Output fields in order (default: all input fields)")
	fs.StringSliceVar(&a.targets, "target-fields", nil, "Fields to translate")
	fs.BoolVar(&a.keepCode, "keep-code", false, "Do not drop records that look like code")
	fs.BoolVar(&a.useMemory, "memory", false, "Use the translation memory stored next to the output")
	fs.BoolVar(&a.report, "report", false, "Write a YAML report next to each output")

	fs.BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling a provider")

	a.provider.register(cmd)
	a.engine.register(fs)

	return cmd
}

// loadJob merges the job file with the command-line flags.
func loadJob(cmd *cobra.Command, a *translateArgs) (*config.File, []config.Dataset, error) {
	fs := cmd.Flags()

	var job *config.File
	var err error
	switch {
	case a.jobFile != "":
		job, err = config.LoadFile(a.jobFile)
	case a.input == "":
		job, err = config.Load(rootDir)
		if err == nil && job == nil {
			err = fmt.Errorf("no %s in %s; run 'datrans init' or pass --input", config.FileName, rootDir)
		}
	default:
		// optional: provider and engine settings of a job file still apply
		job, err = config.Load(rootDir)
	}
	if err != nil {
		return nil, nil, err
	}

	if a.input != "" {
		d := config.Dataset{
			Input:        a.input,
			Output:       a.output,
			IDKey:        a.idKey,
			Fields:       a.fields,
			TargetFields: a.targets,
			Languages:    a.langs,
			SourceLang:   a.sourceLang,
			KeepCode:     a.keepCode,
			Memory:       a.useMemory,
		}
		if len(d.Fields) == 0 {
			if d.Fields, err = inputFields(a.input, a.idKey); err != nil {
				return nil, nil, err
			}
		}
		if job, err = config.FromDataset("", job, d); err != nil {
			return nil, nil, err
		}
	} else {
		for i := range job.Datasets {
			d := &job.Datasets[i]
			if fs.Changed("lang") {
				d.Languages = a.langs
			}
			if fs.Changed("source-lang") {
				d.SourceLang = a.sourceLang
			}
			if fs.Changed("keep-code") {
				d.KeepCode = a.keepCode
			}
			if fs.Changed("memory") {
				d.Memory = a.useMemory
			}
		}
		if err := job.Validate(); err != nil {
			return nil, nil, err
		}
	}

	job.Provider = a.provider.apply(fs, job.Provider)
	job.Engine = a.engine.apply(fs, job.Engine)

	datasets, err := job.Select(a.datasets)
	if err != nil {
		return nil, nil, err
	}
	return job, datasets, nil
}

// inputFields reads the field names of an input dataset.
func inputFields(path, idKey string) ([]string, error) {
	ds, err := record.ReadFile(path, idKey)
	if err != nil {
		return nil, err
	}
	return ds.Fields, nil
}

func runTranslate(cmd *cobra.Command, a *translateArgs) error {
	job, datasets, err := loadJob(cmd, a)
	if err != nil {
		return err
	}
	eo := engineOptions(job.Engine)
	eo.Verbose = a.verbose
	if err := eo.ValidateLimits(); err != nil {
		return err
	}

	if a.dryRun {
		for _, d := range datasets {
			if err := dryRun(job, d, eo); err != nil {
				return err
			}
		}
		return nil
	}

	prov, cfg, err := buildProvider(job.Provider, a.provider.apiKey, a.verbose)
	if err != nil {
		return err
	}
	if cfg.Model != "" {
		logInfo("Provider: %s (%s), Model: %s", cfg.Name, cfg.ID, cfg.Model)
	} else {
		logInfo("Provider: %s (%s)", cfg.Name, cfg.ID)
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning(i18n.T("Interrupted, stopping..."))
		cancel()
	}()

	failures := 0
	for _, d := range datasets {
		for _, lang := range d.Languages {
			rep, err := translateDataset(ctx, prov, job, d, lang, eo, a.report)
			if err != nil {
				if ctx.Err() != nil {
					logWarning(i18n.T("Translation interrupted; outputs of unfinished languages were not written"))
					return nil
				}
				return fmt.Errorf("%s (%s): %w", d.Name, lang, err)
			}
			if len(rep.Unfinished) > 0 {
				failures++
			}
			logSuccess("%s %s: %s", d.Name, langLabel(lang), rep.Summary())
		}
	}

	if failures > 0 {
		logWarning(i18n.N("%d translation left records unfinished; rerun with --memory to resume cheaply",
			"%d translations left records unfinished; rerun with --memory to resume cheaply", failures), failures)
		return nil
	}
	logSuccess(i18n.T("Translation complete!"))
	return nil
}

func translateDataset(ctx context.Context, prov translate.Provider, job *config.File, d config.Dataset, lang string, eo translate.Options, report bool) (*pipeline.Report, error) {
	out := job.OutputPath(d, lang)
	pj := pipeline.Job{
		Name:         d.Name,
		Input:        job.InputPath(d),
		Output:       out,
		IDKey:        d.IDKey,
		Fields:       d.Fields,
		TargetFields: d.TargetFields,
	}
	if d.Memory {
		pj.MemoryPath = filepath.Join(filepath.Dir(out), memory.FileName)
	}
	if report {
		pj.ReportPath = reportPath(out)
	}

	eo.SourceLang = d.SourceLang
	eo.TargetLang = lang
	label := d.Name + " " + lang
	opts := pipeline.Options{
		Engine:   eo,
		KeepCode: d.KeepCode,
		OnLog:    logInfo,
		OnWarn:   logWarning,
		OnError:  logError,
		OnProgress: func(done, total int) {
			logInfo("  %s: %d/%d", label, done, total)
		},
	}

	logInfo(i18n.T("Translating %s into %s"), d.Name, langLabel(lang))
	return pipeline.Run(ctx, prov, pj, opts)
}

// reportPath returns "<output without extension>.report.yaml".
func reportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".report.yaml"
}

func langLabel(lang string) string {
	m := langmeta.Resolve(lang)
	if m.English == "" || m.English == lang {
		return lang
	}
	return fmt.Sprintf("%s (%s)", lang, m.English)
}

// dryRun reads a dataset, applies the code filter and prints the chunk plan.
func dryRun(job *config.File, d config.Dataset, eo translate.Options) error {
	ds, err := record.ReadFile(job.InputPath(d), d.IDKey)
	if err != nil {
		return err
	}
	fields := d.Fields
	if len(fields) == 0 {
		fields = ds.Fields
	}
	fs, err := record.NewFieldSet(fields, d.TargetFields)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	kept, excluded := pipeline.Prefilter(ds.Records, fs.Targets, filter.Detector{}, d.KeepCode)
	logInfo(i18n.T("%s: %d records, %d look like code, %d to translate"), d.Name, len(ds.Records), len(excluded), len(kept))
	for _, line := range describePlan(len(kept), eo) {
		logInfo("  %s", line)
	}
	for _, lang := range d.Languages {
		logInfo("  -> %s: %s", langLabel(lang), job.OutputPath(d, lang))
	}
	return nil
}

// describePlan renders the large chunk / chunk partition of n records.
func describePlan(n int, eo translate.Options) []string {
	plan := translate.Plan(n, eo)
	if len(plan) == 0 {
		return []string{"nothing to translate"}
	}
	lines := make([]string, 0, len(plan))
	for i, chunks := range plan {
		first, last := chunks[0].Start, chunks[len(chunks)-1].End
		lines = append(lines, fmt.Sprintf("large chunk %d/%d: records %d-%d, %d chunk(s) of up to %d",
			i+1, len(plan), first, last-1, len(chunks), chunks[0].Len()))
	}
	return lines
}

// ---------------------------------------------------------------------------
// plan
// ---------------------------------------------------------------------------

func newPlanCmd() *cobra.Command {
	var ef engineFlags

	cmd := &cobra.Command{
		Use:   "plan RECORDS",
		Short: i18n.T("Show how a dataset of N records is chunked"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid record count %q", args[0])
			}
			eo := engineOptions(ef.apply(cmd.Flags(), config.Engine{}))
			if err := eo.ValidateLimits(); err != nil {
				return err
			}
			for _, line := range describePlan(n, eo) {
				fmt.Println(line)
			}
			return nil
		},
	}
	ef.register(cmd.Flags())
	return cmd
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: i18n.T("List known language codes"),
		Run: func(cmd *cobra.Command, args []string) {
			for _, code := range langmeta.Codes() {
				m := langmeta.Resolve(code)
				fmt.Printf("%s %-6s %-22s %s\n", m.Flag, code, m.English, m.Native)
			}
		},
	}
}
