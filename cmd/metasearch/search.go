// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/metasearch/internal/engine"
	"github.com/meshintel/metasearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the web across all configured engines",
	Long: `Search fans the query out across the configured engines, deduplicates
results that resolve to the same page, and ranks the merged set by source
trust and position. Failures of individual engines are reported but never
fail the search.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSlice("sources", nil, "engines to query (default: all registered)")
	searchCmd.Flags().Int("limit", 0, "maximum total results (default 20, max 100)")
	searchCmd.Flags().Int("per-source", 0, "cap on results requested from any single engine")
	searchCmd.Flags().StringSlice("include-domains", nil, "only keep results from these domains")
	searchCmd.Flags().StringSlice("exclude-domains", nil, "drop results from these domains")
	searchCmd.Flags().String("region", "", "region code passed to engines that support it (e.g. us, de)")
	searchCmd.Flags().Int("page", 0, "result page for engines that support pagination")
	searchCmd.Flags().Duration("timeout", 0, "overall request deadline (default 30s)")
	searchCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("out", "", "also save the query and results to a YAML file")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a search query")
	}

	eng, log, err := newEngine()
	if err != nil {
		return err
	}
	defer log.Sync()

	sourceNames, _ := cmd.Flags().GetStringSlice("sources")
	var ids []types.SourceID
	for _, s := range sourceNames {
		ids = append(ids, types.SourceID(strings.ToLower(strings.TrimSpace(s))))
	}
	limit, _ := cmd.Flags().GetInt("limit")
	perSource, _ := cmd.Flags().GetInt("per-source")
	include, _ := cmd.Flags().GetStringSlice("include-domains")
	exclude, _ := cmd.Flags().GetStringSlice("exclude-domains")
	region, _ := cmd.Flags().GetString("region")
	page, _ := cmd.Flags().GetInt("page")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	req := engine.Request{
		Query:          query,
		Sources:        ids,
		TotalLimit:     limit,
		PerSourceLimit: perSource,
		IncludeDomains: include,
		ExcludeDomains: exclude,
		Region:         region,
		Page:           page,
		NoCache:        noCache,
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cmd))
	defer cancel()

	resp, err := eng.Search(ctx, req)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := engine.WriteQueryFile(out, req, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved query file: %s\n", out)
	}

	for _, se := range resp.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", se.Source, se.Message)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range resp.Results {
		names := make([]string, 0, len(r.Sources))
		for _, id := range r.Sources {
			names = append(names, string(id))
		}
		fmt.Fprintf(os.Stdout, "%2d. %s  [%s]\n", i+1, r.Title, strings.Join(names, ","))
		fmt.Fprintf(os.Stdout, "    %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(os.Stdout, "    %s\n", truncate(r.Snippet, 160))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
