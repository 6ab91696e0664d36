package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minios-linux/datrans/translate"
)

const googleWebUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// googleWeb scrapes the mobile page of Google Translate, one request per
// text of a unit.
type googleWeb struct {
	cfg    Config
	client *http.Client
	rl     *rateLimitState
}

func newGoogleWeb(cfg Config, client *http.Client, rl *rateLimitState) *googleWeb {
	return &googleWeb{
		cfg:    cfg,
		client: client,
		rl:     rl,
	}
}

// NewInstance shares the connection pool and the rate limit pause with g.
func (g *googleWeb) NewInstance() translate.Provider {
	c := *g
	return &c
}

// Ping fetches the mobile page once.
func (g *googleWeb) Ping(ctx context.Context) error {
	_, err := g.fetch(ctx, "en", "en", "ping")
	return err
}

// Translate translates texts one at a time. A text whose page carries no
// result is replaced by failMarker; transport errors fail the unit.
func (g *googleWeb) Translate(ctx context.Context, texts []string, sourceLang, targetLang, failMarker string) ([]string, error) {
	out := make([]string, len(texts))
	for i, s := range texts {
		if strings.TrimSpace(s) == "" {
			out[i] = s
			continue
		}
		res, err := g.fetch(ctx, sourceLang, targetLang, s)
		if err != nil {
			return nil, err
		}
		if res == "" {
			res = failMarker
		}
		out[i] = res
	}
	return out, nil
}

func (g *googleWeb) fetch(ctx context.Context, sourceLang, targetLang, text string) (string, error) {
	if err := g.rl.waitIfPaused(ctx); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("q", text)
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/m?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", googleWebUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google web request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		delay := parseRetryDelay(nil, resp.Header.Get("Retry-After"))
		g.rl.pause(delay)
		return "", fmt.Errorf("%w: %s paused for %v", ErrRateLimited, g.cfg.Name, delay)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google web returned status %d", resp.StatusCode)
	}
	return parseGoogleWebResult(body)
}

// parseGoogleWebResult returns the text of the first .result-container.
func parseGoogleWebResult(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing google web page: %w", err)
	}
	return strings.TrimSpace(doc.Find("div.result-container").First().Text()), nil
}
