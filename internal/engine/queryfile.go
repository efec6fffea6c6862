// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/metasearch/pkg/types"
)

// QueryFile is the on-disk representation of a search and its payload. A
// caller can save a search to a file and replay or inspect it later without
// hitting the upstreams again.
type QueryFile struct {
	Query   QueryParams         `yaml:"query"`
	Results []types.WebResult   `yaml:"results"`
	Errors  []types.SourceError `yaml:"errors,omitempty"`
	Summary QuerySummary        `yaml:"summary"`
}

// QueryParams stores the request parameters in a serializable form.
type QueryParams struct {
	Query          string   `yaml:"text"`
	Sources        []string `yaml:"sources,omitempty"`
	TotalLimit     int      `yaml:"total_limit,omitempty"`
	PerSourceLimit int      `yaml:"per_source_limit,omitempty"`
	IncludeDomains []string `yaml:"include_domains,omitempty"`
	ExcludeDomains []string `yaml:"exclude_domains,omitempty"`
	Region         string   `yaml:"region,omitempty"`
	Page           int      `yaml:"page,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total        int       `yaml:"total"`
	SourceErrors int       `yaml:"source_errors"`
	Timestamp    time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a request and its response payload to a YAML file.
func WriteQueryFile(path string, req Request, resp Response) error {
	sources := make([]string, 0, len(req.Sources))
	for _, id := range req.Sources {
		sources = append(sources, string(id))
	}

	qf := QueryFile{
		Query: QueryParams{
			Query:          req.Query,
			Sources:        sources,
			TotalLimit:     req.TotalLimit,
			PerSourceLimit: req.PerSourceLimit,
			IncludeDomains: req.IncludeDomains,
			ExcludeDomains: req.ExcludeDomains,
			Region:         req.Region,
			Page:           req.Page,
		},
		Results: resp.Results,
		Errors:  resp.Errors,
		Summary: QuerySummary{
			Total:        len(resp.Results),
			SourceErrors: len(resp.Errors),
			Timestamp:    time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
