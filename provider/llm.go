package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minios-linux/datrans/langmeta"
	"github.com/minios-linux/datrans/translate"
)

// SystemPrompt is the instruction sent with every LLM unit. The placeholders
// {{sourceLang}}, {{targetLang}} and {{failMarker}} are substituted per call.
const SystemPrompt = `You are a professional translator preparing a multilingual training dataset. You are translating entries of a text dataset from {{sourceLang}} to {{targetLang}}.

TRANSLATION PRINCIPLES:
- Translate for naturalness and fluency in {{targetLang}}, not word-for-word.
- Keep the meaning, register and intent of every entry.
- Do not answer, solve, summarize or comment on the entries; only translate them.

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Leave source code, formulas, URLs and identifiers unchanged.
- Preserve newlines, markdown and list numbering inside an entry.
- If an entry cannot be translated, return the exact string {{failMarker}} in its place.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// ---------------------------------------------------------------------------
// API format types
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
	formatAnthropic                     // Anthropic messages
)

// llm translates units with one chat request per unit.
type llm struct {
	cfg    Config
	format apiFormat
	client *http.Client
	rl     *rateLimitState
}

func newLLM(cfg Config, format apiFormat, client *http.Client, rl *rateLimitState) *llm {
	return &llm{
		cfg:    cfg,
		format: format,
		client: client,
		rl:     rl,
	}
}

// NewInstance returns a handle that shares the connection pool and the rate
// limit pause with p.
func (p *llm) NewInstance() translate.Provider {
	c := *p
	return &c
}

// Ping checks that the backend is configured well enough to be called.
func (p *llm) Ping(ctx context.Context) error {
	if p.cfg.BaseURL == "" {
		return fmt.Errorf("%s: base URL is required", p.cfg.Name)
	}
	if p.cfg.Model == "" {
		return fmt.Errorf("%s: model is required", p.cfg.Name)
	}
	if p.cfg.NeedsKey && p.cfg.APIKey == "" {
		return fmt.Errorf("%s: API key is required", p.cfg.Name)
	}
	return ctx.Err()
}

// Translate sends texts as one numbered list and parses the JSON array the
// model returns.
func (p *llm) Translate(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error) {
	system := resolvePrompt(SystemPrompt, sourceLang, targetLang, failMarker)

	var userMsg strings.Builder
	userMsg.WriteString("Translate these entries:\n\n")
	for i, s := range texts {
		fmt.Fprintf(&userMsg, "%d. %s\n", i+1, escapeForPrompt(s))
	}
	fmt.Fprintf(&userMsg, "\nReturn a JSON array with exactly %d translated strings.", len(texts))

	text, err := p.call(ctx, system, userMsg.String())
	if err != nil {
		return nil, err
	}
	out, err := parseTranslations(text, failMarker)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d entries, model returned %d", translate.ErrLengthMismatch, len(texts), len(out))
	}
	return out, nil
}

func resolvePrompt(prompt, sourceLang, targetLang, failMarker string) string {
	return strings.NewReplacer(
		"{{sourceLang}}", langmeta.EnglishName(sourceLang),
		"{{targetLang}}", langmeta.EnglishName(targetLang),
		"{{failMarker}}", failMarker,
	).Replace(prompt)
}

// escapeForPrompt prepares a string for inclusion in the prompt.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}

// call posts one request, repeating it after network errors and 5xx
// responses. A 429 pauses every instance and fails with ErrRateLimited.
func (p *llm) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, headers, body, err := p.buildHTTPRequest(systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		// Wait if globally paused (rate limit from another instance)
		if err := p.rl.waitIfPaused(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		p.cfg.log("%s attempt %d: POST %s", p.cfg.Name, attempt+1, endpoint)

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < p.cfg.MaxRetries {
				if err := backoffWait(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := parseRetryDelay(respBody, resp.Header.Get("Retry-After"))
			p.rl.pause(delay)
			return "", fmt.Errorf("%w: %s paused for %v", ErrRateLimited, p.cfg.Name, delay)
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < p.cfg.MaxRetries && resp.StatusCode >= 500 {
				if err := backoffWait(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return extractResponseText(respBody)
	}
}

// buildHTTPRequest constructs the endpoint, headers, and body for one call.
func (p *llm) buildHTTPRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	base := strings.TrimRight(p.cfg.BaseURL, "/")
	temperature := p.cfg.effectiveTemperature()

	var endpoint string
	var body []byte
	var err error

	switch p.format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, p.cfg.Model)
		if p.cfg.APIKey != "" {
			headers["x-goog-api-key"] = p.cfg.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, temperature)

	case formatAnthropic:
		endpoint = base + "/messages"
		if p.cfg.APIKey != "" {
			headers["x-api-key"] = p.cfg.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(p.cfg.Model, systemPrompt, userPrompt)

	default:
		endpoint = base
		if !strings.HasSuffix(base, "/chat/completions") {
			endpoint = base + "/chat/completions"
		}
		if p.cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + p.cfg.APIKey
		}
		body, err = buildOpenAIChatRequest(p.cfg.Model, systemPrompt, userPrompt, temperature)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// Request builders for each API format
// ---------------------------------------------------------------------------

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system,omitempty"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages: []msg{
			{Role: "user", Content: userPrompt},
		},
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response parsers (multi-format)
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// 1. OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// 2. Gemini format: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	// 3. Anthropic format: content[].type=="text" -> .text
	if contentArr, ok := raw["content"].([]any); ok {
		for _, c := range contentArr {
			if block, ok := c.(map[string]any); ok && block["type"] == "text" {
				if text, ok := block["text"].(string); ok {
					return text, nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// parseRetryDelay extracts the wait from a 429 response: Google's RetryInfo
// detail, then the Retry-After header, defaulting to 65s.
func parseRetryDelay(body []byte, retryAfter string) time.Duration {
	const defaultDelay = 65 * time.Second // 60s + 5s buffer

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, detail := range errResp.Error.Details {
			if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
				d := strings.TrimSuffix(detail.RetryDelay, "s")
				if secs, err := strconv.ParseFloat(d, 64); err == nil {
					return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
				}
			}
		}
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultDelay
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslations extracts a JSON array from the model response. Entries
// the model left null or empty are replaced by failMarker.
func parseTranslations(content, failMarker string) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	// Models often emit LaTeX or regex backslashes unescaped.
	content = fixInvalidEscapes(content)

	var items []any
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w\nResponse: %s", err, truncate(content, 300))
	}

	out := make([]string, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				out[i] = failMarker
			} else {
				out[i] = v
			}
		case nil:
			out[i] = failMarker
		default:
			b, _ := json.Marshal(v)
			out[i] = string(b)
		}
	}
	return out, nil
}

// fixInvalidEscapes doubles backslashes inside JSON strings that do not start
// a valid JSON escape sequence, e.g. \alpha or \d.
func fixInvalidEscapes(jsonContent string) string {
	var fixed strings.Builder
	inQuote := false
	escaped := false

	for i := 0; i < len(jsonContent); i++ {
		c := jsonContent[i]

		if c == '"' && !escaped {
			inQuote = !inQuote
			fixed.WriteByte(c)
			continue
		}

		if inQuote && c == '\\' && !escaped {
			if i+1 < len(jsonContent) {
				switch jsonContent[i+1] {
				case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
					fixed.WriteByte(c)
					escaped = true
					continue
				}
			}
			fixed.WriteString(`\\`)
			continue
		}

		fixed.WriteByte(c)
		escaped = false
	}

	return fixed.String()
}
