// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/meshintel/metasearch/pkg/types"
)

// googleNewsBase is the Google News RSS search endpoint, substitutable in tests.
var googleNewsBase = "https://news.google.com/rss/search"

// GoogleNews reads the Google News RSS search feed. RSS needs no markup
// scraping and carries outlet and publish-date metadata directly.
type GoogleNews struct {
	Client    *http.Client
	UserAgent string
}

// ID returns the source identifier.
func (s *GoogleNews) ID() types.SourceID { return "google-news" }

// SearchNews queries the RSS feed and maps items to news results.
func (s *GoogleNews) SearchNews(ctx context.Context, p Params) ([]types.NewsResult, error) {
	q := url.Values{}
	q.Set("q", p.Query)
	q.Set("hl", "en-US")
	if r := strings.ToUpper(p.Region); r != "" && r != "ALL" {
		q.Set("gl", r)
	}
	reqURL := googleNewsBase + "?" + q.Encode()

	pg, err := fetchPage(ctx, s.Client, reqURL, s.UserAgent, map[string]string{
		"Accept": "application/rss+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	if pg.Status == http.StatusForbidden || pg.Status == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w status=%d from google news", ErrBlocked, pg.Status)
	}
	if pg.Status != http.StatusOK {
		return nil, fmt.Errorf("google news returned HTTP %d", pg.Status)
	}

	feed, err := gofeed.NewParser().ParseString(pg.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing news feed: %w", err)
	}

	var results []types.NewsResult
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}

		r := types.NewsResult{
			Source:  s.ID(),
			Title:   title,
			URL:     item.Link,
			Snippet: strings.TrimSpace(item.Description),
		}
		if item.PublishedParsed != nil {
			r.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			r.Published = *item.UpdatedParsed
		}
		// Google News appends " - Outlet" to item titles; the feed also
		// carries the outlet in the item source extension.
		if idx := strings.LastIndex(title, " - "); idx > 0 {
			r.Outlet = strings.TrimSpace(title[idx+3:])
			r.Title = strings.TrimSpace(title[:idx])
		}
		if img := item.Image; img != nil && strings.HasPrefix(img.URL, "http") {
			r.ImageURL = img.URL
		}

		results = append(results, r)
		if len(results) >= p.Limit {
			break
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: feed contained no items", ErrNoResults)
	}
	return results, nil
}
