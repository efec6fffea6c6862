// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/metasearch/internal/source"
	"github.com/meshintel/metasearch/pkg/types"
)

// Engine owns every piece of cross-request state: the adapter registry,
// health counters, circuit breaker, response cache, and the concurrency
// limiters. One Engine serves many concurrent requests; nothing here is a
// package-level global.
type Engine struct {
	cfg     types.EngineConfig
	reg     *source.Registry
	log     *zap.Logger
	health  *HealthTracker
	breaker *breaker
	cache   Cache
	scorer  scorer

	// global bounds in-flight upstream calls across all sources; one
	// perSource channel bounds calls to a single upstream.
	global    chan struct{}
	mu        sync.Mutex
	perSource map[types.SourceID]chan struct{}
}

// New wires an Engine from configuration. The logger is required; pass
// zap.NewNop() to silence it.
func New(cfg types.EngineConfig, reg *source.Registry, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 8
	}
	return &Engine{
		cfg:       cfg,
		reg:       reg,
		log:       log,
		health:    NewHealthTracker(),
		breaker:   newBreaker(cfg.Breaker.Cooldown),
		cache:     NewCacheFromConfig(cfg.Cache, log),
		scorer:    scorer{weights: cfg.TrustWeights, def: cfg.DefaultWeight},
		global:    make(chan struct{}, maxConc),
		perSource: make(map[types.SourceID]chan struct{}),
	}
}

// Registry exposes the engine's adapter registry (read-only by convention).
func (e *Engine) Registry() *source.Registry { return e.reg }

// Health returns a copy of every source's counters.
func (e *Engine) Health() map[types.SourceID]types.SourceHealth { return e.health.Snapshot() }

// Healthy reports the aggregate health signal.
func (e *Engine) Healthy() bool { return e.health.Healthy() }

// Request holds one web meta-search invocation. Zero values take defaults:
// all registered sources, a total budget of 20, quota-planned per-source
// limits, caching on.
type Request struct {
	Query          string
	Sources        []types.SourceID
	PerSourceLimit int
	TotalLimit     int
	IncludeDomains []string
	ExcludeDomains []string
	Region         string
	Page           int
	NoCache        bool
}

// Response is the aggregated payload: ranked merged results plus one
// diagnostic record per failed or skipped source. Upstream failures never
// surface as a Search error.
type Response struct {
	Results []types.WebResult   `json:"results"`
	Errors  []types.SourceError `json:"errors,omitempty"`
}

// dispatchEntry pairs a resolved adapter with its planned limit.
type dispatchEntry struct {
	src   source.Source
	limit int
}

// webOutcome is one settled adapter call, in plan order.
type webOutcome struct {
	id           types.SourceID
	results      []types.WebResult
	err          error
	skippedUntil time.Time
}

// Search fans the query out across the requested sources, bounded by the
// configured concurrency ceilings, and returns the deduplicated, ranked,
// budget-truncated result set.
//
// Cancellation of ctx stops new dispatches; results that settled before the
// cancellation are kept and returned. The only errors Search itself returns
// are invalid-input conditions.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, fmt.Errorf("query is empty")
	}

	total := req.TotalLimit
	if total <= 0 {
		total = 20
	} else if total > 100 {
		total = 100
	}

	requested := e.resolveRequested(req.Sources)
	if len(requested) == 0 {
		return Response{}, fmt.Errorf("no known sources requested")
	}

	key := e.webCacheKey(query, requested, req, total)
	if !req.NoCache {
		if resp, ok := e.cachedResponse(ctx, key); ok {
			return resp, nil
		}
	}

	norm := normalizer{
		ownHosts: e.reg.OwnHosts(),
		include:  newDomainSet(req.IncludeDomains),
		exclude:  newDomainSet(req.ExcludeDomains),
	}

	plan := planQuota(requested, total, e.cfg.PreferredSources, e.cfg.Quota)
	if req.PerSourceLimit > 0 {
		for i := range plan {
			if plan[i].Limit > req.PerSourceLimit {
				plan[i].Limit = req.PerSourceLimit
			}
		}
	}

	merged := newMergeState()
	var errs []types.SourceError
	tried := make(map[types.SourceID]struct{})

	wave := e.resolveWave(plan)
	for len(wave) > 0 {
		outcomes := e.runWebWave(ctx, req, wave)
		for _, o := range outcomes {
			tried[o.id] = struct{}{}
			switch {
			case !o.skippedUntil.IsZero():
				errs = append(errs, types.SourceError{
					Source:  o.id,
					Message: "skipped: circuit breaker open until " + o.skippedUntil.UTC().Format(time.RFC3339),
				})
			case o.err != nil:
				errs = append(errs, types.SourceError{Source: o.id, Message: o.err.Error()})
			default:
				for i, r := range o.results {
					u, ok := norm.normalize(r.URL)
					if !ok {
						continue
					}
					r.URL = u
					merged.add(dedupeKey(u), r, e.scorer.score(o.id, i))
				}
			}
		}

		if merged.len() >= total || ctx.Err() != nil {
			break
		}
		wave = e.fallbackWave(tried)
	}

	results := merged.sorted()
	if len(results) > total {
		results = results[:total]
	}

	resp := Response{Results: results, Errors: errs}
	if !req.NoCache {
		e.storeResponse(ctx, key, resp)
	}
	return resp, nil
}

// resolveRequested keeps the known requested sources in request order,
// dropping duplicates; an empty request means every registered web source.
func (e *Engine) resolveRequested(ids []types.SourceID) []types.SourceID {
	if len(ids) == 0 {
		return e.reg.WebIDs()
	}
	seen := make(map[types.SourceID]struct{}, len(ids))
	var out []types.SourceID
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e.reg.LookupWeb(id) != nil {
			out = append(out, id)
		}
	}
	return out
}

// resolveWave maps a quota plan onto registered adapters.
func (e *Engine) resolveWave(plan []allocation) []dispatchEntry {
	var wave []dispatchEntry
	for _, a := range plan {
		if s := e.reg.LookupWeb(a.Source); s != nil {
			wave = append(wave, dispatchEntry{src: s, limit: a.Limit})
		}
	}
	return wave
}

// fallbackWave plans the fill pass: every registered source not yet tried,
// in registration order, with the fixed fallback limit.
func (e *Engine) fallbackWave(tried map[types.SourceID]struct{}) []dispatchEntry {
	limit := e.cfg.Quota.FallbackLimit
	if limit <= 0 {
		limit = 10
	}
	var wave []dispatchEntry
	for _, s := range e.reg.Web() {
		if _, ok := tried[s.ID()]; ok {
			continue
		}
		wave = append(wave, dispatchEntry{src: s, limit: limit})
	}
	return wave
}

// runWebWave dispatches every entry concurrently and joins them all. The
// returned outcomes are in wave order, so adapter completion order never
// leaks into ranking.
func (e *Engine) runWebWave(ctx context.Context, req Request, wave []dispatchEntry) []webOutcome {
	outcomes := make([]webOutcome, len(wave))
	var wg sync.WaitGroup

	for i, d := range wave {
		id := d.src.ID()
		outcomes[i].id = id

		if blocked, until := e.breaker.Blocked(id); blocked {
			outcomes[i].skippedUntil = until
			continue
		}

		wg.Add(1)
		go func(i int, d dispatchEntry) {
			defer wg.Done()
			outcomes[i].results, outcomes[i].err = e.callSource(ctx, d, req)
		}(i, d)
	}

	wg.Wait()
	return outcomes
}

// callSource runs one upstream call under both concurrency ceilings and
// records the outcome in the health tracker and circuit breaker.
func (e *Engine) callSource(ctx context.Context, d dispatchEntry, req Request) ([]types.WebResult, error) {
	id := d.src.ID()

	select {
	case e.global <- struct{}{}:
		defer func() { <-e.global }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	limiter := e.limiterFor(id)
	select {
	case limiter <- struct{}{}:
		defer func() { <-limiter }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	e.health.RecordRequest(id)
	results, err := d.src.Search(ctx, source.Params{
		Query:  strings.TrimSpace(req.Query),
		Limit:  d.limit,
		Page:   req.Page,
		Region: req.Region,
	})
	if err != nil {
		e.health.RecordError(id, err.Error())
		if source.IsBlocked(err) {
			e.breaker.Trip(id)
			e.log.Warn("source blocked, circuit breaker tripped",
				zap.String("source", string(id)), zap.Error(err))
		} else {
			e.log.Warn("source failed", zap.String("source", string(id)), zap.Error(err))
		}
		return nil, err
	}

	e.health.RecordSuccess(id)
	return results, nil
}

func (e *Engine) limiterFor(id types.SourceID) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	limiter, ok := e.perSource[id]
	if !ok {
		n := e.cfg.MaxPerSourceConcurrent
		if n <= 0 {
			n = 1
		}
		limiter = make(chan struct{}, n)
		e.perSource[id] = limiter
	}
	return limiter
}

// --- deduplication with score merge ---

// scoredWeb carries the internal ranking fields alongside a result. They
// are stripped at the response boundary; only the provenance list survives.
type scoredWeb struct {
	res   types.WebResult
	score float64
	seq   int
}

// mergeState is the running dedupe map. Insertion sequence numbers give the
// deterministic tie-break.
type mergeState struct {
	m   map[string]*scoredWeb
	seq int
}

func newMergeState() *mergeState {
	return &mergeState{m: make(map[string]*scoredWeb)}
}

// add merges one scored result under its dedupe key. A new key inserts; an
// existing key unions the provenance and lets the higher score win the
// representative fields. The first insertion's sequence is kept either way
// so ties stay stable.
func (ms *mergeState) add(key string, r types.WebResult, score float64) {
	cur, ok := ms.m[key]
	if !ok {
		r.Sources = []types.SourceID{r.Source}
		ms.m[key] = &scoredWeb{res: r, score: score, seq: ms.seq}
		ms.seq++
		return
	}

	if !containsSource(cur.res.Sources, r.Source) {
		cur.res.Sources = append(cur.res.Sources, r.Source)
	}
	if score > cur.score {
		sources := cur.res.Sources
		r.Sources = sources
		cur.res = r
		cur.score = score
	}
}

func (ms *mergeState) len() int { return len(ms.m) }

// sorted returns the representatives ordered by score descending, ties
// broken by insertion sequence.
func (ms *mergeState) sorted() []types.WebResult {
	entries := make([]*scoredWeb, 0, len(ms.m))
	for _, s := range ms.m {
		entries = append(entries, s)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]types.WebResult, 0, len(entries))
	for _, s := range entries {
		out = append(out, s.res)
	}
	return out
}

func containsSource(ids []types.SourceID, id types.SourceID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// --- caching helpers ---

func (e *Engine) webCacheKey(query string, requested []types.SourceID, req Request, total int) string {
	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		ids = append(ids, string(id))
	}
	return cacheKey("web", query,
		strings.Join(ids, ","),
		strconv.Itoa(req.PerSourceLimit),
		strconv.Itoa(total),
		strings.Join(req.IncludeDomains, ","),
		strings.Join(req.ExcludeDomains, ","),
		req.Region,
		strconv.Itoa(req.Page),
	)
}

func (e *Engine) cachedResponse(ctx context.Context, key string) (Response, bool) {
	payload, ok := e.cache.Get(ctx, key)
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		e.log.Warn("dropping undecodable cache entry", zap.Error(err))
		return Response{}, false
	}
	return resp, true
}

func (e *Engine) storeResponse(ctx context.Context, key string, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		e.log.Warn("response not cacheable", zap.Error(err))
		return
	}
	e.cache.Set(ctx, key, payload)
}
