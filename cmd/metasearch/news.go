// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news [query...]",
	Short: "Search recent news coverage",
	Long: `News queries the Google News feed for recent coverage of a topic. No API
key is required.`,
	RunE: runNews,
}

func init() {
	newsCmd.Flags().Int("limit", 0, "maximum results (default 30, max 100)")
	newsCmd.Flags().String("region", "", "region code (e.g. us, de)")
	newsCmd.Flags().Duration("timeout", 0, "overall request deadline (default 30s)")
	newsCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	newsCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(newsCmd)
}

func runNews(cmd *cobra.Command, args []string) error {
	req, eng, log, err := verticalRequest(cmd, args)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cmd))
	defer cancel()

	resp, err := eng.News(ctx, req)
	if err != nil {
		return err
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
		meta := r.Outlet
		if !r.Published.IsZero() {
			if meta != "" {
				meta += ", "
			}
			meta += r.Published.Format("2006-01-02 15:04")
		}
		if meta != "" {
			meta = "  (" + meta + ")"
		}
		fmt.Fprintf(os.Stdout, "%2d. %s%s\n", i+1, r.Title, meta)
		fmt.Fprintf(os.Stdout, "    %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(os.Stdout, "    %s\n", truncate(r.Snippet, 160))
		}
	}
	return nil
}
