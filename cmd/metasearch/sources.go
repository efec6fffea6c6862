// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/metasearch/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured engines and their health",
	Long: `Sources lists every registered engine with its trust weight, the
verticals it serves, and its recorded health. Health counters are per
process, so a fresh invocation shows every engine as untested.`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(sourcesCmd)
}

// sourceReport is one row of the sources listing.
type sourceReport struct {
	ID        types.SourceID     `json:"id"`
	Weight    float64            `json:"weight"`
	Verticals []string           `json:"verticals"`
	Hosts     []string           `json:"hosts,omitempty"`
	Status    string             `json:"status"`
	Health    types.SourceHealth `json:"health"`
}

func runSources(cmd *cobra.Command, args []string) error {
	eng, log, err := newEngine()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := engineConfig()
	reg := eng.Registry()
	health := eng.Health()

	verticals := make(map[types.SourceID][]string)
	for _, s := range reg.Web() {
		verticals[s.ID()] = append(verticals[s.ID()], "web")
	}
	for _, s := range reg.Images() {
		verticals[s.ID()] = append(verticals[s.ID()], "images")
	}
	for _, s := range reg.Videos() {
		verticals[s.ID()] = append(verticals[s.ID()], "videos")
	}
	for _, s := range reg.News() {
		verticals[s.ID()] = append(verticals[s.ID()], "news")
	}

	var reports []sourceReport
	seen := make(map[types.SourceID]struct{})
	appendReport := func(id types.SourceID, hosts []string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		weight, ok := cfg.TrustWeights[id]
		if !ok {
			weight = cfg.DefaultWeight
		}
		h := health[id]
		status := "untested"
		switch {
		case h.Tested() && h.Unhealthy():
			status = "unhealthy"
		case h.Tested():
			status = "healthy"
		}
		reports = append(reports, sourceReport{
			ID:        id,
			Weight:    weight,
			Verticals: verticals[id],
			Hosts:     hosts,
			Status:    status,
			Health:    h,
		})
	}
	for _, s := range reg.Web() {
		appendReport(s.ID(), s.Hosts())
	}
	for _, s := range reg.Images() {
		appendReport(s.ID(), nil)
	}
	for _, s := range reg.Videos() {
		appendReport(s.ID(), nil)
	}
	for _, s := range reg.News() {
		appendReport(s.ID(), nil)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-6s  %-20s  %s\n", "Source", "Weight", "Verticals", "Status")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 56))
	for _, r := range reports {
		fmt.Fprintf(os.Stdout, "%-12s  %-6.2f  %-20s  %s\n",
			r.ID, r.Weight, strings.Join(r.Verticals, ","), r.Status)
	}
	if cfg.SerperAPIKey == "" {
		fmt.Fprintln(os.Stderr, "\nNo Serper API key configured: google web/images/videos are unavailable.")
	}
	return nil
}
