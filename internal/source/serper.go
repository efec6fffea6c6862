// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/meshintel/metasearch/internal/httputil"
	"github.com/meshintel/metasearch/pkg/types"
)

// serperBase is the Serper API root, substitutable in tests.
var serperBase = "https://google.serper.dev"

// Serper queries Google through the Serper JSON API. One value serves the
// web, image, and video verticals; each uses a different endpoint of the
// same API.
type Serper struct {
	Client *http.Client
	APIKey string

	// MaxRetries bounds 429 retries per call (default set by httputil).
	MaxRetries int
}

// ID returns the source identifier.
func (s *Serper) ID() types.SourceID { return "google" }

// Hosts returns the hostnames a Google-derived result must not point back at.
func (s *Serper) Hosts() []string {
	return []string{"google.com", "www.google.com", "googleusercontent.com", "news.google.com"}
}

type serperOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type serperImage struct {
	Title        string `json:"title"`
	ImageURL     string `json:"imageUrl"`
	ImageWidth   int    `json:"imageWidth"`
	ImageHeight  int    `json:"imageHeight"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Link         string `json:"link"`
}

type serperVideo struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	ImageURL string `json:"imageUrl"`
	Duration string `json:"duration"`
	Channel  string `json:"channel"`
	Date     string `json:"date"`
}

type serperResponse struct {
	Organic []serperOrganic `json:"organic"`
	Images  []serperImage   `json:"images"`
	Videos  []serperVideo   `json:"videos"`
}

// Search queries the Serper web endpoint.
func (s *Serper) Search(ctx context.Context, p Params) ([]types.WebResult, error) {
	resp, err := s.call(ctx, "/search", p)
	if err != nil {
		return nil, err
	}

	var results []types.WebResult
	for _, r := range resp.Organic {
		title := strings.TrimSpace(r.Title)
		link := strings.TrimSpace(r.Link)
		if title == "" || link == "" {
			continue
		}
		results = append(results, types.WebResult{
			Source:  s.ID(),
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(r.Snippet),
		})
		if len(results) >= p.Limit {
			break
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: serper returned no organic results", ErrNoResults)
	}
	return results, nil
}

// SearchImages queries the Serper image endpoint.
func (s *Serper) SearchImages(ctx context.Context, p Params) ([]types.ImageResult, error) {
	resp, err := s.call(ctx, "/images", p)
	if err != nil {
		return nil, err
	}

	var results []types.ImageResult
	for _, r := range resp.Images {
		if r.ImageURL == "" {
			continue
		}
		results = append(results, types.ImageResult{
			Source:    s.ID(),
			Title:     strings.TrimSpace(r.Title),
			URL:       r.ImageURL,
			Thumbnail: r.ThumbnailURL,
			Width:     r.ImageWidth,
			Height:    r.ImageHeight,
			PageURL:   r.Link,
		})
		if len(results) >= p.Limit {
			break
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: serper returned no images", ErrNoResults)
	}
	return results, nil
}

// SearchVideos queries the Serper video endpoint.
func (s *Serper) SearchVideos(ctx context.Context, p Params) ([]types.VideoResult, error) {
	resp, err := s.call(ctx, "/videos", p)
	if err != nil {
		return nil, err
	}

	var results []types.VideoResult
	for _, r := range resp.Videos {
		title := strings.TrimSpace(r.Title)
		if title == "" || r.Link == "" {
			continue
		}
		results = append(results, types.VideoResult{
			Source:    s.ID(),
			Title:     title,
			URL:       r.Link,
			Thumbnail: r.ImageURL,
			Duration:  r.Duration,
			Channel:   r.Channel,
			Published: r.Date,
		})
		if len(results) >= p.Limit {
			break
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: serper returned no videos", ErrNoResults)
	}
	return results, nil
}

// call posts one query to a Serper endpoint. 429 responses are retried with
// backoff; 403 means a bad or exhausted key and classifies as blocked.
func (s *Serper) call(ctx context.Context, path string, p Params) (*serperResponse, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("serper API key not set")
	}

	num := p.Limit
	if num <= 0 || num > 100 {
		num = 20
	}
	body := map[string]any{"q": p.Query, "num": num}
	if p.Page > 1 {
		body["page"] = p.Page
	}
	if r := strings.ToLower(p.Region); r != "" && r != "all" {
		body["gl"] = r
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperBase+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, s.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w status=%d from serper", ErrBlocked, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("serper returned HTTP %d", resp.StatusCode)
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing serper response: %w", err)
	}
	return &parsed, nil
}
