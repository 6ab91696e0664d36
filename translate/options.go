package translate

import (
	"fmt"
	"time"
)

// Defaults used when the corresponding Options field is zero.
const (
	DefaultLargeChunkThreshold = 20000
	DefaultMaxRecordsPerTask   = 400
	DefaultMaxListPerTask      = 3
	DefaultMaxTextLength       = 15000
	DefaultMaxConcurrent       = 8
	DefaultMaxRetries          = 8
	DefaultRetryDelay          = time.Second
	DefaultMaxRetryDelay       = time.Minute
	DefaultSourceLang          = "en"
	DefaultFailMarker          = "P1OP1_F"
)

// UnlimitedRetries makes every failed task resubmit until it succeeds.
const UnlimitedRetries = -1

// Options controls the translation engine.
type Options struct {
	// SourceLang is the language of the input texts (default "en").
	SourceLang string
	// TargetLang is the language to translate into (required).
	TargetLang string
	// FailMarker is handed to the provider as the substitute for texts it
	// could not translate (default "P1OP1_F").
	FailMarker string

	// LargeChunkThreshold is the number of records above which the dataset
	// is split into large chunks processed one after another.
	LargeChunkThreshold int
	// MaxRecordsPerTask is the number of records per concurrent chunk task.
	// Must be smaller than LargeChunkThreshold.
	MaxRecordsPerTask int
	// MaxListPerTask is the longest list of texts sent as one unit when
	// sub-list fan-out is enabled.
	MaxListPerTask int
	// DisableSublistFanout sends long lists as a single unit.
	DisableSublistFanout bool
	// MaxTextLength is the character ceiling of a single text; longer texts
	// are split into sentences.
	MaxTextLength int

	// MaxConcurrent bounds in-flight provider calls across all levels.
	MaxConcurrent int
	// MaxRetries is how often a failed chunk or sub-list is resubmitted
	// (0 = default, UnlimitedRetries = never give up).
	MaxRetries int
	// RetryDelay is the base of the exponential backoff between attempts.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff.
	MaxRetryDelay time.Duration

	// OnProgress is called after each chunk completes.
	OnProgress func(done, total int)
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits warnings (oversized fields and the like).
	OnWarn func(format string, args ...any)
	// OnError emits recovered failures.
	OnError func(format string, args ...any)
	// Verbose enables per-unit debug messages through OnLog.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) logWarn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) sourceLang() string {
	if o.SourceLang != "" {
		return o.SourceLang
	}
	return DefaultSourceLang
}

func (o *Options) failMarker() string {
	if o.FailMarker != "" {
		return o.FailMarker
	}
	return DefaultFailMarker
}

func (o *Options) largeChunkThreshold() int {
	if o.LargeChunkThreshold > 0 {
		return o.LargeChunkThreshold
	}
	return DefaultLargeChunkThreshold
}

func (o *Options) maxRecordsPerTask() int {
	if o.MaxRecordsPerTask > 0 {
		return o.MaxRecordsPerTask
	}
	return DefaultMaxRecordsPerTask
}

func (o *Options) maxListPerTask() int {
	if o.MaxListPerTask > 0 {
		return o.MaxListPerTask
	}
	return DefaultMaxListPerTask
}

func (o *Options) maxTextLength() int {
	if o.MaxTextLength > 0 {
		return o.MaxTextLength
	}
	return DefaultMaxTextLength
}

func (o *Options) maxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return DefaultMaxConcurrent
}

// maxRetries returns -1 for unlimited.
func (o *Options) maxRetries() int {
	switch {
	case o.MaxRetries < 0:
		return UnlimitedRetries
	case o.MaxRetries > 0:
		return o.MaxRetries
	}
	return DefaultMaxRetries
}

func (o *Options) retryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return DefaultRetryDelay
}

func (o *Options) maxRetryDelay() time.Duration {
	if o.MaxRetryDelay > 0 {
		return o.MaxRetryDelay
	}
	return DefaultMaxRetryDelay
}

// backoff returns the wait before the attempt following attempt n (0-based).
func (o *Options) backoff(n int) time.Duration {
	d := o.retryDelay()
	limit := o.maxRetryDelay()
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

func (o *Options) validate() error {
	if o.TargetLang == "" {
		return fmt.Errorf("%w: target language is required", ErrInvalidOptions)
	}
	return o.ValidateLimits()
}

// ValidateLimits checks the partition and concurrency limits after defaults
// are applied: none may be negative, and the effective records per task must
// stay below the effective large chunk threshold.
func (o *Options) ValidateLimits() error {
	for name, v := range map[string]int{
		"large chunk threshold": o.LargeChunkThreshold,
		"max records per task":  o.MaxRecordsPerTask,
		"max list per task":     o.MaxListPerTask,
		"max text length":       o.MaxTextLength,
		"max concurrent":        o.MaxConcurrent,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidOptions, name)
		}
	}
	if o.maxRecordsPerTask() >= o.largeChunkThreshold() {
		return fmt.Errorf("%w: max records per task (%d) must be smaller than the large chunk threshold (%d)",
			ErrInvalidOptions, o.maxRecordsPerTask(), o.largeChunkThreshold())
	}
	return nil
}
