// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/metasearch/internal/source"
	"github.com/meshintel/metasearch/pkg/types"
)

// VerticalRequest holds one image/video/news search invocation. The
// verticals are a simplified pipeline: single-vertical adapters tried in
// registration order, no quota planning, no scoring beyond source order,
// dedupe by URL, cache.
type VerticalRequest struct {
	Query   string
	Limit   int
	Page    int
	Region  string
	NoCache bool
}

// ImagesResponse is the image vertical payload.
type ImagesResponse struct {
	Results []types.ImageResult `json:"results"`
}

// VideosResponse is the video vertical payload.
type VideosResponse struct {
	Results []types.VideoResult `json:"results"`
}

// NewsResponse is the news vertical payload.
type NewsResponse struct {
	Results []types.NewsResult `json:"results"`
}

func (r *VerticalRequest) normalize(maxLimit, defaultLimit int) (string, error) {
	query := strings.TrimSpace(r.Query)
	if query == "" {
		return "", fmt.Errorf("query is empty")
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	} else if r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	if r.Page < 1 {
		r.Page = 1
	}
	return query, nil
}

func (r VerticalRequest) cacheKey(vertical, query string) string {
	return cacheKey(vertical, query, strconv.Itoa(r.Limit), strconv.Itoa(r.Page), r.Region)
}

// Images runs the image vertical.
func (e *Engine) Images(ctx context.Context, req VerticalRequest) (ImagesResponse, error) {
	query, err := req.normalize(200, 50)
	if err != nil {
		return ImagesResponse{}, err
	}

	key := req.cacheKey("images", query)
	if !req.NoCache {
		if payload, ok := e.cache.Get(ctx, key); ok {
			var resp ImagesResponse
			if json.Unmarshal(payload, &resp) == nil {
				return resp, nil
			}
		}
	}

	var collected []types.ImageResult
	for _, s := range e.reg.Images() {
		if ctx.Err() != nil {
			break
		}
		_, err := e.callVertical(ctx, s.ID(), func(ctx context.Context, p source.Params) (int, error) {
			r, err := s.SearchImages(ctx, p)
			collected = append(collected, r...)
			return len(r), err
		}, query, req)
		if err != nil {
			continue
		}
		if len(collected) >= req.Limit {
			break
		}
	}

	seen := make(map[string]struct{}, len(collected))
	resp := ImagesResponse{Results: make([]types.ImageResult, 0, len(collected))}
	for _, r := range collected {
		k := strings.ToLower(r.URL)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		resp.Results = append(resp.Results, r)
		if len(resp.Results) >= req.Limit {
			break
		}
	}

	if !req.NoCache {
		if payload, err := json.Marshal(resp); err == nil {
			e.cache.Set(ctx, key, payload)
		}
	}
	return resp, nil
}

// Videos runs the video vertical.
func (e *Engine) Videos(ctx context.Context, req VerticalRequest) (VideosResponse, error) {
	query, err := req.normalize(100, 30)
	if err != nil {
		return VideosResponse{}, err
	}

	key := req.cacheKey("videos", query)
	if !req.NoCache {
		if payload, ok := e.cache.Get(ctx, key); ok {
			var resp VideosResponse
			if json.Unmarshal(payload, &resp) == nil {
				return resp, nil
			}
		}
	}

	var collected []types.VideoResult
	for _, s := range e.reg.Videos() {
		if ctx.Err() != nil {
			break
		}
		_, err := e.callVertical(ctx, s.ID(), func(ctx context.Context, p source.Params) (int, error) {
			r, err := s.SearchVideos(ctx, p)
			collected = append(collected, r...)
			return len(r), err
		}, query, req)
		if err != nil {
			continue
		}
		if len(collected) >= req.Limit {
			break
		}
	}

	seen := make(map[string]struct{}, len(collected))
	resp := VideosResponse{Results: make([]types.VideoResult, 0, len(collected))}
	for _, r := range collected {
		k := strings.ToLower(r.URL)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		resp.Results = append(resp.Results, r)
		if len(resp.Results) >= req.Limit {
			break
		}
	}

	if !req.NoCache {
		if payload, err := json.Marshal(resp); err == nil {
			e.cache.Set(ctx, key, payload)
		}
	}
	return resp, nil
}

// News runs the news vertical.
func (e *Engine) News(ctx context.Context, req VerticalRequest) (NewsResponse, error) {
	query, err := req.normalize(100, 30)
	if err != nil {
		return NewsResponse{}, err
	}

	key := req.cacheKey("news", query)
	if !req.NoCache {
		if payload, ok := e.cache.Get(ctx, key); ok {
			var resp NewsResponse
			if json.Unmarshal(payload, &resp) == nil {
				return resp, nil
			}
		}
	}

	var collected []types.NewsResult
	for _, s := range e.reg.News() {
		if ctx.Err() != nil {
			break
		}
		_, err := e.callVertical(ctx, s.ID(), func(ctx context.Context, p source.Params) (int, error) {
			r, err := s.SearchNews(ctx, p)
			collected = append(collected, r...)
			return len(r), err
		}, query, req)
		if err != nil {
			continue
		}
		if len(collected) >= req.Limit {
			break
		}
	}

	seen := make(map[string]struct{}, len(collected))
	resp := NewsResponse{Results: make([]types.NewsResult, 0, len(collected))}
	for _, r := range collected {
		k := strings.ToLower(r.URL)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		resp.Results = append(resp.Results, r)
		if len(resp.Results) >= req.Limit {
			break
		}
	}

	if !req.NoCache {
		if payload, err := json.Marshal(resp); err == nil {
			e.cache.Set(ctx, key, payload)
		}
	}
	return resp, nil
}

// callVertical runs one vertical adapter call under the breaker, the
// concurrency ceilings, and health tracking. The call closure returns how
// many results it produced so empty successes still count as soft errors
// upstream of it.
func (e *Engine) callVertical(ctx context.Context, id types.SourceID,
	call func(context.Context, source.Params) (int, error), query string, req VerticalRequest) (int, error) {

	if blocked, until := e.breaker.Blocked(id); blocked {
		e.log.Debug("vertical source skipped, circuit breaker open",
			zap.String("source", string(id)), zap.Time("until", until))
		return 0, fmt.Errorf("skipped: circuit breaker open")
	}

	select {
	case e.global <- struct{}{}:
		defer func() { <-e.global }()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	limiter := e.limiterFor(id)
	select {
	case limiter <- struct{}{}:
		defer func() { <-limiter }()
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	e.health.RecordRequest(id)
	n, err := call(ctx, source.Params{Query: query, Limit: req.Limit, Page: req.Page, Region: req.Region})
	if err != nil {
		e.health.RecordError(id, err.Error())
		if source.IsBlocked(err) {
			e.breaker.Trip(id)
		}
		e.log.Warn("vertical source failed", zap.String("source", string(id)), zap.Error(err))
		return n, err
	}
	e.health.RecordSuccess(id)
	return n, nil
}
