// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"path/filepath"
	"testing"

	"github.com/meshintel/metasearch/pkg/types"
)

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.yaml")

	req := Request{
		Query:          "golang concurrency",
		Sources:        []types.SourceID{"duckduckgo", "brave"},
		TotalLimit:     10,
		ExcludeDomains: []string{"pinterest.com"},
		Region:         "us",
	}
	resp := Response{
		Results: []types.WebResult{
			{
				Source:  "duckduckgo",
				Sources: []types.SourceID{"duckduckgo", "brave"},
				Title:   "Go Concurrency Patterns",
				URL:     "https://go.dev/blog/pipelines",
				Snippet: "Patterns for composing goroutines.",
			},
		},
		Errors: []types.SourceError{{Source: "mojeek", Message: "status 500"}},
	}

	if err := WriteQueryFile(path, req, resp); err != nil {
		t.Fatalf("WriteQueryFile: %v", err)
	}

	qf, err := ReadQueryFile(path)
	if err != nil {
		t.Fatalf("ReadQueryFile: %v", err)
	}

	if qf.Query.Query != req.Query {
		t.Errorf("query text = %q, want %q", qf.Query.Query, req.Query)
	}
	if len(qf.Query.Sources) != 2 || qf.Query.Sources[0] != "duckduckgo" {
		t.Errorf("sources = %v", qf.Query.Sources)
	}
	if qf.Query.Region != "us" {
		t.Errorf("region = %q", qf.Query.Region)
	}
	if len(qf.Results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(qf.Results))
	}
	r := qf.Results[0]
	if r.URL != "https://go.dev/blog/pipelines" || len(r.Sources) != 2 {
		t.Errorf("result = %+v", r)
	}
	if len(qf.Errors) != 1 || qf.Errors[0].Source != "mojeek" {
		t.Errorf("errors = %v", qf.Errors)
	}
	if qf.Summary.Total != 1 || qf.Summary.SourceErrors != 1 {
		t.Errorf("summary = %+v", qf.Summary)
	}
	if qf.Summary.Timestamp.IsZero() {
		t.Error("summary timestamp not set")
	}
}

func TestReadQueryFileErrors(t *testing.T) {
	if _, err := ReadQueryFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("reading a missing file must fail")
	}
}
