// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the metasearch engine:
// per-vertical result records, source diagnostics, and configuration.
package types

import "time"

// SourceID identifies one upstream search provider (e.g. "duckduckgo", "google").
type SourceID string

// WebResult is one web search result after normalization and merging.
type WebResult struct {
	// Source identifies which upstream produced the representative result.
	Source SourceID `json:"source" yaml:"source"`

	// Sources lists every upstream that independently returned an
	// equivalent result. Always contains Source.
	Sources []SourceID `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Title is the result title as returned by the upstream.
	Title string `json:"title" yaml:"title"`

	// URL is the de-redirected canonical absolute URL.
	URL string `json:"url" yaml:"url"`

	// Snippet is the upstream's text excerpt, when available.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// ImageResult is one image search result.
type ImageResult struct {
	Source    SourceID `json:"source" yaml:"source"`
	Title     string   `json:"title" yaml:"title"`
	URL       string   `json:"url" yaml:"url"`
	Thumbnail string   `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Width     int      `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int      `json:"height,omitempty" yaml:"height,omitempty"`
	PageURL   string   `json:"page_url,omitempty" yaml:"page_url,omitempty"`
}

// VideoResult is one video search result.
type VideoResult struct {
	Source    SourceID `json:"source" yaml:"source"`
	Title     string   `json:"title" yaml:"title"`
	URL       string   `json:"url" yaml:"url"`
	Thumbnail string   `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Duration  string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Channel   string   `json:"channel,omitempty" yaml:"channel,omitempty"`
	Views     string   `json:"views,omitempty" yaml:"views,omitempty"`
	Published string   `json:"published,omitempty" yaml:"published,omitempty"`
}

// NewsResult is one news search result.
type NewsResult struct {
	Source    SourceID  `json:"source" yaml:"source"`
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url" yaml:"url"`
	Outlet    string    `json:"outlet,omitempty" yaml:"outlet,omitempty"`
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`
	Snippet   string    `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	ImageURL  string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// SourceError records one upstream failure or skip during an aggregation call.
// Individual source failures never fail the whole request; they surface here.
type SourceError struct {
	Source  SourceID `json:"source" yaml:"source"`
	Message string   `json:"message" yaml:"message"`
}

// SourceHealth holds the rolling counters the engine keeps per upstream.
// Counters are monotonic; status is derived, never stored.
type SourceHealth struct {
	TotalRequests    int       `json:"total_requests" yaml:"total_requests"`
	TotalErrors      int       `json:"total_errors" yaml:"total_errors"`
	LastSuccess      time.Time `json:"last_success,omitempty" yaml:"last_success,omitempty"`
	LastError        time.Time `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorMessage string    `json:"last_error_message,omitempty" yaml:"last_error_message,omitempty"`
}

// Unhealthy reports whether the most recent outcome for the source was a
// failure. A source that has never been called is neither healthy nor
// unhealthy; use Tested to distinguish.
func (h SourceHealth) Unhealthy() bool {
	return h.TotalErrors > 0 && h.LastError.After(h.LastSuccess)
}

// Tested reports whether the source has been called at least once.
func (h SourceHealth) Tested() bool { return h.TotalRequests > 0 }
