// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps how much of an upstream response is read. Result pages
// are small; anything larger is junk or an attack.
const maxBodyBytes = 4 << 20

// page is one fetched upstream response.
type page struct {
	// FinalURL is the URL after redirects; blocked heuristics inspect it
	// because several upstreams redirect challenges to /sorry or /captcha
	// paths.
	FinalURL string
	Status   int
	Body     string
}

// fetchPage issues a GET with browser-like headers and returns the body
// regardless of status code; classification happens afterwards so status
// 403/429 bodies can still be inspected.
func fetchPage(ctx context.Context, client *http.Client, reqURL, userAgent string, headers map[string]string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	if userAgent == "" {
		userAgent = "metasearch/0.1"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return page{}, fmt.Errorf("reading upstream response: %w", err)
	}

	finalURL := reqURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return page{FinalURL: finalURL, Status: resp.StatusCode, Body: string(body)}, nil
}

// blockedHints are substrings that mark a challenge page. Checked against
// the final URL and body together, lowercased.
var blockedHints = []string{
	"captcha",
	"unusual traffic",
	"verify",
	"robot",
	"consent",
	"blocked",
	"access denied",
	"enable javascript",
	"attention required",
	"cloudflare",
	"temporarily unavailable",
	"service unavailable",
}

// classifyEmpty decides why a parse produced zero results: a block/CAPTCHA
// condition (ErrBlocked) or a plain miss (ErrNoResults). count > 0 is never
// an error. The returned message embeds status and a flattened body snippet
// for diagnostics.
func classifyEmpty(p page, count int) error {
	if count > 0 {
		return nil
	}

	hay := strings.ToLower(p.FinalURL + "\n" + p.Body)
	blocked := p.Status == http.StatusForbidden || p.Status == http.StatusTooManyRequests
	if !blocked {
		for _, h := range blockedHints {
			if strings.Contains(hay, h) {
				blocked = true
				break
			}
		}
	}

	snippet := strings.Join(strings.Fields(p.Body), " ")
	if len(snippet) > 220 {
		snippet = snippet[:220]
	}
	if blocked {
		return fmt.Errorf("%w status=%d url=%q snippet=%q", ErrBlocked, p.Status, p.FinalURL, snippet)
	}
	return fmt.Errorf("%w status=%d url=%q snippet=%q", ErrNoResults, p.Status, p.FinalURL, snippet)
}
