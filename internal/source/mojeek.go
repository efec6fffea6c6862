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

// mojeekBase is the Mojeek endpoint, substitutable in tests.
var mojeekBase = "https://www.mojeek.com/search"

// Mojeek scrapes the Mojeek result page. Mojeek runs its own index, so its
// results diverge usefully from the Google-derived upstreams.
type Mojeek struct {
	Client    *http.Client
	UserAgent string
}

// ID returns the source identifier.
func (s *Mojeek) ID() types.SourceID { return "mojeek" }

// Hosts returns the upstream's own hostnames.
func (s *Mojeek) Hosts() []string {
	return []string{"mojeek.com", "www.mojeek.com"}
}

// Search queries Mojeek and parses the result list.
func (s *Mojeek) Search(ctx context.Context, p Params) ([]types.WebResult, error) {
	reqURL := mojeekBase + "?q=" + url.QueryEscape(p.Query)
	pg, err := fetchPage(ctx, s.Client, reqURL, s.UserAgent, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.Body))
	if err != nil {
		return nil, err
	}

	var results []types.WebResult
	doc.Find("li.result, .results li").EachWithBreak(func(_ int, n *goquery.Selection) bool {
		a := n.Find("a[href]").First()
		title := strings.TrimSpace(a.Text())
		href := strings.TrimSpace(a.AttrOr("href", ""))
		snippet := strings.TrimSpace(n.Find("p").First().Text())
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
