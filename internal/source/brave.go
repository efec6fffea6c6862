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

// braveBase is the Brave Search endpoint, substitutable in tests.
var braveBase = "https://search.brave.com/search"

// Brave scrapes the Brave Search result page.
type Brave struct {
	Client    *http.Client
	UserAgent string
}

// ID returns the source identifier.
func (s *Brave) ID() types.SourceID { return "brave" }

// Hosts returns the upstream's own hostnames.
func (s *Brave) Hosts() []string {
	return []string{"brave.com", "search.brave.com"}
}

// Search queries Brave Search and parses the snippet blocks.
func (s *Brave) Search(ctx context.Context, p Params) ([]types.WebResult, error) {
	reqURL := braveBase + "?q=" + url.QueryEscape(p.Query) + "&source=web"
	pg, err := fetchPage(ctx, s.Client, reqURL, s.UserAgent, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.Body))
	if err != nil {
		return nil, err
	}

	var results []types.WebResult
	doc.Find("div#results .snippet, div.snippet").EachWithBreak(func(_ int, n *goquery.Selection) bool {
		a := n.Find("a[href]").First()
		title := strings.TrimSpace(n.Find(".title").First().Text())
		if title == "" {
			title = strings.TrimSpace(a.Text())
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		snippet := strings.TrimSpace(n.Find(".snippet-description, .description").First().Text())
		if title == "" || href == "" {
			return true
		}
		results = append(results, types.WebResult{
			Source:  s.ID(),
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
		return len(results) < p.Limit
	})

	if err := classifyEmpty(pg, len(results)); err != nil {
		return nil, err
	}
	return results, nil
}
