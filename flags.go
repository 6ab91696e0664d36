package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/datrans/config"
	"github.com/minios-linux/datrans/provider"
	"github.com/minios-linux/datrans/settings"
	"github.com/minios-linux/datrans/translate"
)

// ---------------------------------------------------------------------------
// Provider flags
// ---------------------------------------------------------------------------

type providerFlags struct {
	id, model, apiKey, baseURL, proxy string
	timeout                           time.Duration
	temperature                       float64
	retries                           int
}

func (f *providerFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.id, "provider", "", "Translation provider: "+strings.Join(provider.IDs(), ", "))
	fs.StringVar(&f.model, "model", "", "Model name (LLM providers)")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	fs.StringVar(&f.baseURL, "base-url", "", "Custom API base URL")
	fs.StringVar(&f.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fs.DurationVar(&f.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	fs.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (0 = provider default)")
	fs.IntVar(&f.retries, "http-retries", 0, "In-call retries after network errors and 5xx responses")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defs := provider.DefaultConfigs()
		out := make([]string, 0, len(defs))
		for _, id := range provider.IDs() {
			out = append(out, id+"\t"+defs[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		return modelExamples[p], cobra.ShellCompDirectiveNoFileComp
	})
}

// apply overlays the flags that were set on p.
func (f *providerFlags) apply(fs *pflag.FlagSet, p config.Provider) config.Provider {
	if fs.Changed("provider") {
		p.ID = f.id
	}
	if fs.Changed("model") {
		p.Model = f.model
	}
	if fs.Changed("base-url") {
		p.BaseURL = f.baseURL
	}
	if fs.Changed("proxy") {
		p.Proxy = f.proxy
	}
	if fs.Changed("timeout") {
		p.Timeout = f.timeout
	}
	if fs.Changed("temperature") {
		p.Temperature = f.temperature
	}
	if fs.Changed("http-retries") {
		p.Retries = f.retries
	}
	return p
}

var modelExamples = map[string][]string{
	provider.IDOpenAI:       {"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
	provider.IDGroq:         {"llama-3.3-70b-versatile", "mixtral-8x7b-32768"},
	provider.IDGoogle:       {"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-pro"},
	provider.IDAnthropic:    {"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
	provider.IDOllama:       {"llama3.2", "qwen2.5", "mistral"},
	provider.IDCustomOpenAI: {"gpt-4o-mini"},
}

// buildProvider resolves the backend described by p. apiKey is the value of
// --api-key.
func buildProvider(p config.Provider, apiKey string, verbose bool) (translate.Provider, provider.Config, error) {
	if p.ID == "" {
		return nil, provider.Config{}, fmt.Errorf("no provider specified; use --provider or set provider.id in %s\n\nAvailable providers: %s",
			config.FileName, strings.Join(provider.IDs(), ", "))
	}
	cfg := provider.Config{
		ID:          p.ID,
		Model:       p.Model,
		BaseURL:     p.BaseURL,
		Proxy:       p.Proxy,
		Timeout:     p.Timeout,
		Temperature: p.Temperature,
		MaxRetries:  p.Retries,
		APIKey:      settings.ResolveAPIKey(p.ID, apiKey),
	}
	if cfg.ID == provider.IDCustomOpenAI && cfg.BaseURL == "" {
		cfg.BaseURL = settings.GetBaseURL(cfg.ID)
	}
	if verbose {
		cfg.OnLog = logDebug
	}

	cfg, err := provider.Resolve(cfg)
	if err != nil {
		return nil, cfg, err
	}
	if err := validateProvider(cfg); err != nil {
		return nil, cfg, err
	}
	prov, err := provider.New(cfg)
	return prov, cfg, err
}

func validateProvider(cfg provider.Config) error {
	switch cfg.ID {
	case provider.IDEcho, provider.IDGoogleWeb:
		return nil
	}

	if cfg.Model == "" {
		examples := strings.Join(modelExamples[cfg.ID], ", ")
		if examples == "" {
			examples = "check provider documentation"
		}
		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			cfg.ID, cfg.Name, examples, cfg.ID)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("provider '%s' requires an endpoint URL\n\n"+
			"Option 1: Configure via auth:\n"+
			"  datrans auth login --provider %s\n\n"+
			"Option 2: Pass directly:\n"+
			"  --base-url https://api.example.com/v1", cfg.ID, cfg.ID)
	}
	if cfg.NeedsKey && cfg.APIKey == "" {
		env := settings.EnvVarForProvider(cfg.ID)
		return fmt.Errorf("provider '%s' requires an API key\n\n"+
			"Option 1: Store your API key:\n"+
			"  datrans auth login --provider %s\n\n"+
			"Option 2: Pass key directly:\n"+
			"  --api-key YOUR_KEY or export %s=YOUR_KEY (or %s)",
			cfg.ID, cfg.ID, settings.EnvAPIKey, env)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Engine flags
// ---------------------------------------------------------------------------

type engineFlags struct {
	largeChunk, perTask, perList int
	maxText, maxConcurrent       int
	maxRetries                   int
	noFanout                     bool
	retryDelay, maxRetryDelay    time.Duration
	failMarker                   string
}

func (f *engineFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.largeChunk, "large-chunk-threshold", translate.DefaultLargeChunkThreshold, "Records above which the dataset is processed in sequential large chunks")
	fs.IntVar(&f.perTask, "max-records-per-task", translate.DefaultMaxRecordsPerTask, "Records per concurrent chunk")
	fs.IntVar(&f.perList, "max-list-per-task", translate.DefaultMaxListPerTask, "Longest list sent as one request")
	fs.BoolVar(&f.noFanout, "no-fanout", false, "Send long lists as a single request")
	fs.IntVar(&f.maxText, "max-text-length", translate.DefaultMaxTextLength, "Characters above which a text is translated by sentences")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", translate.DefaultMaxConcurrent, "Maximum provider calls in flight")
	fs.IntVar(&f.maxRetries, "max-retries", translate.DefaultMaxRetries, "Resubmissions of a failed chunk (-1 = unlimited)")
	fs.DurationVar(&f.retryDelay, "retry-delay", translate.DefaultRetryDelay, "Base delay of the exponential backoff")
	fs.DurationVar(&f.maxRetryDelay, "max-retry-delay", translate.DefaultMaxRetryDelay, "Backoff cap")
	fs.StringVar(&f.failMarker, "fail-marker", translate.DefaultFailMarker, "Marker substituted for texts that failed to translate")
}

// apply overlays the flags that were set on e.
func (f *engineFlags) apply(fs *pflag.FlagSet, e config.Engine) config.Engine {
	if fs.Changed("large-chunk-threshold") {
		e.LargeChunkThreshold = f.largeChunk
	}
	if fs.Changed("max-records-per-task") {
		e.MaxRecordsPerTask = f.perTask
	}
	if fs.Changed("max-list-per-task") {
		e.MaxListPerTask = f.perList
	}
	if fs.Changed("no-fanout") {
		e.DisableSublistFanout = f.noFanout
	}
	if fs.Changed("max-text-length") {
		e.MaxTextLength = f.maxText
	}
	if fs.Changed("max-concurrent") {
		e.MaxConcurrent = f.maxConcurrent
	}
	if fs.Changed("max-retries") {
		e.MaxRetries = f.maxRetries
	}
	if fs.Changed("retry-delay") {
		e.RetryDelay = f.retryDelay
	}
	if fs.Changed("max-retry-delay") {
		e.MaxRetryDelay = f.maxRetryDelay
	}
	if fs.Changed("fail-marker") {
		e.FailMarker = f.failMarker
	}
	return e
}

// engineOptions converts job file engine settings; zero values keep the
// engine defaults.
func engineOptions(e config.Engine) translate.Options {
	return translate.Options{
		LargeChunkThreshold:  e.LargeChunkThreshold,
		MaxRecordsPerTask:    e.MaxRecordsPerTask,
		MaxListPerTask:       e.MaxListPerTask,
		DisableSublistFanout: e.DisableSublistFanout,
		MaxTextLength:        e.MaxTextLength,
		MaxConcurrent:        e.MaxConcurrent,
		MaxRetries:           e.MaxRetries,
		RetryDelay:           e.RetryDelay,
		MaxRetryDelay:        e.MaxRetryDelay,
		FailMarker:           e.FailMarker,
	}
}
