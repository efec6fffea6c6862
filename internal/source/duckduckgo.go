// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/meshintel/metasearch/pkg/types"
)

// duckduckgoBase is the DuckDuckGo Lite endpoint. Declared as a var so tests
// can substitute an httptest server.
var duckduckgoBase = "https://lite.duckduckgo.com/lite/"

// DuckDuckGo scrapes the DuckDuckGo Lite result page. Lite serves plain
// table markup, which keeps the selectors stable.
type DuckDuckGo struct {
	Client    *http.Client
	UserAgent string
}

// ID returns the source identifier.
func (s *DuckDuckGo) ID() types.SourceID { return "duckduckgo" }

// Hosts returns the upstream's own hostnames.
func (s *DuckDuckGo) Hosts() []string {
	return []string{"duckduckgo.com", "lite.duckduckgo.com", "html.duckduckgo.com"}
}

// Search queries DuckDuckGo Lite and parses the result table.
func (s *DuckDuckGo) Search(ctx context.Context, p Params) ([]types.WebResult, error) {
	reqURL := duckduckgoBase + "?q=" + url.QueryEscape(p.Query)
	pg, err := fetchPage(ctx, s.Client, reqURL, s.UserAgent, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.Body))
	if err != nil {
		return nil, err
	}

	var results []types.WebResult
	collect := func(_ int, a *goquery.Selection) bool {
		title := strings.TrimSpace(a.Text())
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if title == "" || href == "" {
			return true
		}
		row := a.Closest("tr")
		snippet := strings.TrimSpace(row.Next().Find("td.result-snippet").Text())
		if snippet == "" {
			snippet = strings.TrimSpace(row.Find("td.result-snippet").Text())
		}
		results = append(results, types.WebResult{
			Source:  s.ID(),
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
		return len(results) < p.Limit
	}

	doc.Find("a.result-link").EachWithBreak(collect)
	if len(results) == 0 {
		// Lite occasionally drops the result-link class; fall back to any
		// table anchor.
		doc.Find("table a[href]").EachWithBreak(collect)
	}

	if err := classifyEmpty(pg, len(results)); err != nil {
		return nil, err
	}
	return results, nil
}
