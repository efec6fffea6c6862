// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/metasearch/internal/source"
	"github.com/meshintel/metasearch/pkg/types"
)

// concGauge tracks the peak number of simultaneous fake calls.
type concGauge struct {
	mu       sync.Mutex
	cur, max int
}

func (g *concGauge) inc() {
	g.mu.Lock()
	g.cur++
	if g.cur > g.max {
		g.max = g.cur
	}
	g.mu.Unlock()
}

func (g *concGauge) dec() {
	g.mu.Lock()
	g.cur--
	g.mu.Unlock()
}

// fakeWeb is a scripted web source.
type fakeWeb struct {
	id      types.SourceID
	hosts   []string
	results []types.WebResult
	err     error
	delay   time.Duration
	gauge   *concGauge

	calls     atomic.Int32
	lastLimit atomic.Int32
}

func (f *fakeWeb) ID() types.SourceID { return f.id }
func (f *fakeWeb) Hosts() []string    { return f.hosts }

func (f *fakeWeb) Search(ctx context.Context, p source.Params) ([]types.WebResult, error) {
	f.calls.Add(1)
	f.lastLimit.Store(int32(p.Limit))
	if f.gauge != nil {
		f.gauge.inc()
		defer f.gauge.dec()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	res := f.results
	if p.Limit > 0 && len(res) > p.Limit {
		res = res[:p.Limit]
	}
	out := make([]types.WebResult, len(res))
	copy(out, res)
	return out, nil
}

// webResults builds n unique results for a source.
func webResults(id types.SourceID, host string, n int) []types.WebResult {
	out := make([]types.WebResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.WebResult{
			Source:  id,
			Title:   fmt.Sprintf("%s result %d", id, i),
			URL:     fmt.Sprintf("https://%s/%s-%d", host, id, i),
			Snippet: "snippet",
		})
	}
	return out
}

func testEngineConfig() types.EngineConfig {
	cfg := types.DefaultEngineConfig()
	cfg.TrustWeights = map[types.SourceID]float64{"alpha": 1.0, "beta": 0.8, "gamma": 0.6}
	cfg.DefaultWeight = 0.5
	cfg.PreferredSources = []types.SourceID{"alpha"}
	return cfg
}

func newTestEngine(cfg types.EngineConfig, webs ...source.Source) *Engine {
	return New(cfg, source.NewRegistryFrom(webs, nil, nil, nil), zap.NewNop())
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(testEngineConfig(), &fakeWeb{id: "alpha"})

	if _, err := e.Search(context.Background(), Request{Query: "   "}); err == nil {
		t.Error("empty query must be rejected")
	}
	if _, err := e.Search(context.Background(), Request{Query: "x", Sources: []types.SourceID{"nope"}}); err == nil {
		t.Error("request naming only unknown sources must be rejected")
	}
}

func TestSearchAggregatesAndRanks(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 5)}
	beta := &fakeWeb{id: "beta", results: webResults("beta", "b.example", 5)}
	gamma := &fakeWeb{id: "gamma", results: webResults("gamma", "c.example", 5)}
	e := newTestEngine(testEngineConfig(), alpha, beta, gamma)

	resp, err := e.Search(context.Background(), Request{Query: "golang", TotalLimit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("unexpected source errors: %v", resp.Errors)
	}
	if len(resp.Results) != 10 {
		t.Fatalf("len(results) = %d, want 10", len(resp.Results))
	}

	// The highest-trust source's top pick ranks first, and scores only
	// decrease down the list.
	if resp.Results[0].Source != "alpha" || !strings.HasSuffix(resp.Results[0].URL, "alpha-0") {
		t.Errorf("results[0] = %+v, want alpha's first result", resp.Results[0])
	}
	s := scorer{weights: e.cfg.TrustWeights, def: e.cfg.DefaultWeight}
	prev := s.score("alpha", 0)
	for _, r := range resp.Results[1:] {
		pos := 0
		fmt.Sscanf(r.URL[strings.LastIndexByte(r.URL, '-')+1:], "%d", &pos)
		sc := s.score(r.Source, pos)
		if sc > prev {
			t.Errorf("result %s out of score order (%v after %v)", r.URL, sc, prev)
		}
		prev = sc
	}

	// Every unique result carries its own provenance.
	for _, r := range resp.Results {
		if len(r.Sources) != 1 || r.Sources[0] != r.Source {
			t.Errorf("Sources of %s = %v, want [%s]", r.URL, r.Sources, r.Source)
		}
	}

	// The quota planner, not the callers, decided the per-source limits:
	// preferred alpha got the scaled share, the others split the rest.
	if alpha.lastLimit.Load() != 4 {
		t.Errorf("alpha limit = %d, want 4", alpha.lastLimit.Load())
	}
	if beta.lastLimit.Load() != 3 || gamma.lastLimit.Load() != 3 {
		t.Errorf("beta/gamma limits = %d/%d, want 3/3", beta.lastLimit.Load(), gamma.lastLimit.Load())
	}
}

func TestSearchDedupeMergesSources(t *testing.T) {
	shared := "https://shared.example/page"
	alpha := &fakeWeb{id: "alpha", results: []types.WebResult{
		{Source: "alpha", Title: "Alpha only", URL: "https://a.example/x"},
		{Source: "alpha", Title: "Shared from alpha", URL: shared},
	}}
	beta := &fakeWeb{id: "beta", results: []types.WebResult{
		{Source: "beta", Title: "Shared from beta", URL: shared + "/"},
	}}
	e := newTestEngine(testEngineConfig(), alpha, beta)

	resp, err := e.Search(context.Background(), Request{Query: "dedupe"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (duplicate collapsed)", len(resp.Results))
	}

	var merged *types.WebResult
	for i := range resp.Results {
		if strings.HasPrefix(resp.Results[i].URL, shared) {
			merged = &resp.Results[i]
		}
	}
	if merged == nil {
		t.Fatal("merged shared result missing")
	}
	// beta saw it at position 0 (score 0.8), alpha at position 1 (score
	// 0.5): beta's representative wins, provenance is the union.
	if merged.Title != "Shared from beta" {
		t.Errorf("representative title = %q, want beta's", merged.Title)
	}
	want := []types.SourceID{"alpha", "beta"}
	if !reflect.DeepEqual(merged.Sources, want) {
		t.Errorf("Sources = %v, want %v", merged.Sources, want)
	}
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	// Two sources with the default weight produce equal top scores; the
	// requested order must break the tie, run after run.
	s1 := &fakeWeb{id: "s1", results: webResults("s1", "one.example", 1)}
	s2 := &fakeWeb{id: "s2", results: webResults("s2", "two.example", 1)}
	e := newTestEngine(testEngineConfig(), s1, s2)

	req := Request{Query: "tie", Sources: []types.SourceID{"s1", "s2"}, NoCache: true}
	var first []string
	for i := 0; i < 5; i++ {
		resp, err := e.Search(context.Background(), req)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		var order []string
		for _, r := range resp.Results {
			order = append(order, r.URL)
		}
		if first == nil {
			first = order
			if len(first) != 2 || !strings.Contains(first[0], "one.example") {
				t.Fatalf("order = %v, want s1's result first", first)
			}
			continue
		}
		if !reflect.DeepEqual(order, first) {
			t.Fatalf("run %d order %v != first run %v", i, order, first)
		}
	}
}

func TestSearchBudgetAndPerSourceCap(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 30)}
	beta := &fakeWeb{id: "beta", results: webResults("beta", "b.example", 30)}
	e := newTestEngine(testEngineConfig(), alpha, beta)

	resp, err := e.Search(context.Background(), Request{Query: "cap", TotalLimit: 6, PerSourceLimit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) > 6 {
		t.Errorf("len(results) = %d, exceeds total budget 6", len(resp.Results))
	}
	if alpha.lastLimit.Load() > 2 || beta.lastLimit.Load() > 2 {
		t.Errorf("per-source cap ignored: limits %d/%d", alpha.lastLimit.Load(), beta.lastLimit.Load())
	}
}

func TestSearchSourceErrorDoesNotFailCall(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 3)}
	beta := &fakeWeb{id: "beta", err: fmt.Errorf("status 500: upstream exploded")}
	e := newTestEngine(testEngineConfig(), alpha, beta)

	resp, err := e.Search(context.Background(), Request{Query: "partial"})
	if err != nil {
		t.Fatalf("Search must not fail on a source error: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Error("healthy source's results missing")
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Source != "beta" {
		t.Fatalf("Errors = %v, want one entry for beta", resp.Errors)
	}
	if !strings.Contains(resp.Errors[0].Message, "upstream exploded") {
		t.Errorf("error message %q lost the cause", resp.Errors[0].Message)
	}
}

func TestSearchCircuitBreaker(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 3)}
	beta := &fakeWeb{id: "beta", err: fmt.Errorf("%w: status 403 from https://b.example", source.ErrBlocked)}
	e := newTestEngine(testEngineConfig(), alpha, beta)

	resp, err := e.Search(context.Background(), Request{Query: "blocked", NoCache: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0].Message, "blocked_or_captcha") {
		t.Fatalf("first call Errors = %v, want beta's blocked error", resp.Errors)
	}
	if h := e.Health()["beta"]; h.TotalErrors != 1 {
		t.Errorf("beta TotalErrors = %d, want 1", h.TotalErrors)
	}

	// Second call: beta is skipped without being dispatched.
	resp, err = e.Search(context.Background(), Request{Query: "blocked", NoCache: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if beta.calls.Load() != 1 {
		t.Errorf("beta called %d times, want 1 (breaker open)", beta.calls.Load())
	}
	found := false
	for _, se := range resp.Errors {
		if se.Source == "beta" && strings.Contains(se.Message, "skipped: circuit breaker open until") {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want synthesized breaker-skip entry for beta", resp.Errors)
	}
	if h := e.Health()["beta"]; h.TotalErrors != 1 {
		t.Errorf("skip must not count as a new error, TotalErrors = %d", h.TotalErrors)
	}
}

func TestSearchCachedReplay(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 3)}
	e := newTestEngine(testEngineConfig(), alpha)

	req := Request{Query: "cache me"}
	first, err := e.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Mutate the upstream; the cached replay must not notice.
	alpha.results = webResults("alpha", "changed.example", 3)

	second, err := e.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if alpha.calls.Load() != 1 {
		t.Errorf("alpha called %d times, want 1 (cache hit)", alpha.calls.Load())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached response differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	// NoCache bypasses both read and write.
	if _, err := e.Search(context.Background(), Request{Query: "cache me", NoCache: true}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if alpha.calls.Load() != 2 {
		t.Errorf("alpha called %d times, want 2 after NoCache", alpha.calls.Load())
	}
}

func TestSearchSelfReferenceAndRedirects(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", hosts: []string{"a.example"}, results: []types.WebResult{
		{Source: "alpha", Title: "wrapped", URL: "https://a.example/l/?uddg=https%3A%2F%2Freal.example%2Fdest"},
		{Source: "alpha", Title: "interstitial", URL: "https://a.example/settings"},
		{Source: "alpha", Title: "plain", URL: "https://other.example/page"},
	}}
	e := newTestEngine(testEngineConfig(), alpha)

	resp, err := e.Search(context.Background(), Request{Query: "self"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	urls := make(map[string]bool)
	for _, r := range resp.Results {
		urls[r.URL] = true
	}
	if !urls["https://real.example/dest"] {
		t.Errorf("redirect wrapper not unwrapped: %v", urls)
	}
	if !urls["https://other.example/page"] {
		t.Errorf("plain external result missing: %v", urls)
	}
	for u := range urls {
		if strings.Contains(u, "a.example") {
			t.Errorf("self-referential URL survived: %s", u)
		}
	}
}

func TestSearchDomainFilters(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: []types.WebResult{
		{Source: "alpha", URL: "https://docs.good.example/a"},
		{Source: "alpha", URL: "https://bad.example/b"},
		{Source: "alpha", URL: "https://good.example/c"},
	}}

	e := newTestEngine(testEngineConfig(), alpha)
	resp, err := e.Search(context.Background(), Request{
		Query:          "filters",
		IncludeDomains: []string{"good.example"},
		ExcludeDomains: []string{"docs.good.example"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://good.example/c" {
		t.Errorf("results = %+v, want only https://good.example/c", resp.Results)
	}
}

func TestSearchFallbackFill(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 2)}
	beta := &fakeWeb{id: "beta", results: webResults("beta", "b.example", 5)}
	gamma := &fakeWeb{id: "gamma", results: webResults("gamma", "c.example", 5)}
	e := newTestEngine(testEngineConfig(), alpha, beta, gamma)

	// Only alpha is requested but it cannot fill the budget; the untried
	// registered sources run a fill pass at the fallback limit.
	resp, err := e.Search(context.Background(), Request{Query: "fill", Sources: []types.SourceID{"alpha"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if beta.calls.Load() != 1 || gamma.calls.Load() != 1 {
		t.Fatalf("fallback calls beta/gamma = %d/%d, want 1/1", beta.calls.Load(), gamma.calls.Load())
	}
	if beta.lastLimit.Load() != 10 {
		t.Errorf("fallback limit = %d, want 10", beta.lastLimit.Load())
	}
	if len(resp.Results) != 12 {
		t.Errorf("len(results) = %d, want 12 (2 + 5 + 5)", len(resp.Results))
	}
}

func TestSearchCancellationKeepsPartialResults(t *testing.T) {
	alpha := &fakeWeb{id: "alpha", results: webResults("alpha", "a.example", 3)}
	beta := &fakeWeb{id: "beta", results: webResults("beta", "b.example", 3)}
	slow := &fakeWeb{id: "gamma", delay: 5 * time.Second, results: webResults("gamma", "c.example", 3)}
	e := newTestEngine(testEngineConfig(), alpha, beta, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp, err := e.Search(ctx, Request{Query: "partial", NoCache: true})
	if err != nil {
		t.Fatalf("cancellation must not fail the call: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Search did not return promptly on cancellation")
	}
	if len(resp.Results) != 6 {
		t.Errorf("len(results) = %d, want 6 from the fast sources", len(resp.Results))
	}
	found := false
	for _, se := range resp.Errors {
		if se.Source == "gamma" && strings.Contains(se.Message, context.DeadlineExceeded.Error()) {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want deadline entry for gamma", resp.Errors)
	}
}

func TestSearchGlobalConcurrencyCeiling(t *testing.T) {
	gauge := &concGauge{}
	var webs []source.Source
	ids := []types.SourceID{"w1", "w2", "w3", "w4", "w5"}
	for _, id := range ids {
		webs = append(webs, &fakeWeb{
			id:      id,
			delay:   20 * time.Millisecond,
			gauge:   gauge,
			results: webResults(id, string(id)+".example", 2),
		})
	}
	cfg := testEngineConfig()
	cfg.MaxConcurrent = 2
	e := newTestEngine(cfg, webs...)

	if _, err := e.Search(context.Background(), Request{Query: "ceiling", Sources: ids, NoCache: true}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gauge.max > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", gauge.max)
	}
}

func TestSearchPerSourceConcurrencyCeiling(t *testing.T) {
	gauge := &concGauge{}
	slow := &fakeWeb{
		id:      "solo",
		delay:   20 * time.Millisecond,
		gauge:   gauge,
		results: webResults("solo", "solo.example", 2),
	}
	cfg := testEngineConfig()
	cfg.MaxConcurrent = 8
	cfg.MaxPerSourceConcurrent = 1
	e := newTestEngine(cfg, slow)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := Request{Query: fmt.Sprintf("q%d", i), Sources: []types.SourceID{"solo"}, NoCache: true}
			if _, err := e.Search(context.Background(), req); err != nil {
				t.Errorf("Search: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if gauge.max > 1 {
		t.Errorf("peak per-source concurrency = %d, want 1", gauge.max)
	}
}
