// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines the upstream search-provider contract and the
// concrete adapters that implement it. The aggregation engine treats every
// adapter as a black box: it sends a query with a limit and gets candidates
// or a classified error back. Parsing details stay inside each adapter.
package source

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/meshintel/metasearch/pkg/types"
)

// Params carries one upstream call's inputs. Cancellation and deadlines
// arrive through the context passed to Search, not through Params.
type Params struct {
	Query  string
	Limit  int
	Page   int
	Region string
}

// Source is a web search provider. Implementations follow the Strategy
// pattern: one value per upstream, registered with the Registry.
type Source interface {
	ID() types.SourceID
	// Hosts lists the upstream's own hostnames. The normalizer rejects
	// results that merely point back at one of these.
	Hosts() []string
	Search(ctx context.Context, p Params) ([]types.WebResult, error)
}

// ImageSource is an image search provider.
type ImageSource interface {
	ID() types.SourceID
	SearchImages(ctx context.Context, p Params) ([]types.ImageResult, error)
}

// VideoSource is a video search provider.
type VideoSource interface {
	ID() types.SourceID
	SearchVideos(ctx context.Context, p Params) ([]types.VideoResult, error)
}

// NewsSource is a news search provider.
type NewsSource interface {
	ID() types.SourceID
	SearchNews(ctx context.Context, p Params) ([]types.NewsResult, error)
}

// Sentinel errors adapters wrap so the engine can classify failures.
// ErrBlocked means the upstream challenged or refused the request (CAPTCHA,
// rate limit, access denied) and triggers circuit-breaking. ErrNoResults
// means the call succeeded but produced no usable candidates; it is a soft
// error and never trips the breaker.
var (
	ErrBlocked   = errors.New("blocked_or_captcha")
	ErrNoResults = errors.New("no_results")
)

// IsBlocked reports whether err signals a blocked/anti-bot condition.
// Foreign adapters that cannot wrap ErrBlocked may instead prefix their
// message with "blocked_or_captcha"; the string check is the minimum bar.
func IsBlocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBlocked) {
		return true
	}
	return strings.HasPrefix(err.Error(), "blocked_or_captcha")
}

// Registry holds every known adapter, grouped by vertical, in a fixed
// registration order. It is built once at construction and never mutated,
// so concurrent reads need no locking.
type Registry struct {
	web    []Source
	images []ImageSource
	videos []VideoSource
	news   []NewsSource
}

// NewRegistry wires the concrete adapters from configuration. Adapters that
// need credentials (the Serper-backed Google family) register only when the
// key is present.
func NewRegistry(cfg types.EngineConfig, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	r := &Registry{
		web: []Source{
			&DuckDuckGo{Client: client, UserAgent: cfg.UserAgent},
			&Brave{Client: client, UserAgent: cfg.UserAgent},
			&Mojeek{Client: client, UserAgent: cfg.UserAgent},
		},
		news: []NewsSource{
			&GoogleNews{Client: client, UserAgent: cfg.UserAgent},
		},
	}

	if cfg.SerperAPIKey != "" {
		serper := &Serper{Client: client, APIKey: cfg.SerperAPIKey}
		r.web = append(r.web, serper)
		r.images = append(r.images, serper)
		r.videos = append(r.videos, serper)
	}
	return r
}

// NewRegistryFrom builds a registry from explicit adapter lists. Tests and
// embedders use it to register fakes.
func NewRegistryFrom(web []Source, images []ImageSource, videos []VideoSource, news []NewsSource) *Registry {
	return &Registry{web: web, images: images, videos: videos, news: news}
}

// Web returns the registered web sources in registration order.
func (r *Registry) Web() []Source { return r.web }

// Images returns the registered image sources in registration order.
func (r *Registry) Images() []ImageSource { return r.images }

// Videos returns the registered video sources in registration order.
func (r *Registry) Videos() []VideoSource { return r.videos }

// News returns the registered news sources in registration order.
func (r *Registry) News() []NewsSource { return r.news }

// WebIDs returns the identifiers of every registered web source.
func (r *Registry) WebIDs() []types.SourceID {
	ids := make([]types.SourceID, 0, len(r.web))
	for _, s := range r.web {
		ids = append(ids, s.ID())
	}
	return ids
}

// LookupWeb returns the web source with the given ID, or nil.
func (r *Registry) LookupWeb(id types.SourceID) Source {
	for _, s := range r.web {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// OwnHosts returns the union of every registered web source's hostnames,
// used for self-reference rejection.
func (r *Registry) OwnHosts() []string {
	var hosts []string
	seen := make(map[string]struct{})
	for _, s := range r.web {
		for _, h := range s.Hosts() {
			h = strings.ToLower(h)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			hosts = append(hosts, h)
		}
	}
	return hosts
}
