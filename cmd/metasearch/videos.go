// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var videosCmd = &cobra.Command{
	Use:   "videos [query...]",
	Short: "Search for videos",
	Long: `Videos queries the configured video providers. Requires a Serper API key
(secret file serper-api-key or config serper_api_key); without one no video
provider is registered.`,
	RunE: runVideos,
}

func init() {
	videosCmd.Flags().Int("limit", 0, "maximum results (default 30, max 100)")
	videosCmd.Flags().String("region", "", "region code (e.g. us, de)")
	videosCmd.Flags().Int("page", 0, "result page")
	videosCmd.Flags().Duration("timeout", 0, "overall request deadline (default 30s)")
	videosCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	videosCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(videosCmd)
}

func runVideos(cmd *cobra.Command, args []string) error {
	req, eng, log, err := verticalRequest(cmd, args)
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(eng.Registry().Videos()) == 0 {
		return fmt.Errorf("no video providers registered: configure a Serper API key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cmd))
	defer cancel()

	resp, err := eng.Videos(ctx, req)
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
		meta := r.Channel
		if r.Duration != "" {
			if meta != "" {
				meta += ", "
			}
			meta += r.Duration
		}
		if meta != "" {
			meta = "  (" + meta + ")"
		}
		fmt.Fprintf(os.Stdout, "%2d. %s%s\n", i+1, r.Title, meta)
		fmt.Fprintf(os.Stdout, "    %s\n", r.URL)
	}
	return nil
}
