// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/metasearch/internal/engine"
)

var imagesCmd = &cobra.Command{
	Use:   "images [query...]",
	Short: "Search for images",
	Long: `Images queries the configured image providers. Requires a Serper API key
(secret file serper-api-key or config serper_api_key); without one no image
provider is registered.`,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().Int("limit", 0, "maximum results (default 50, max 200)")
	imagesCmd.Flags().String("region", "", "region code (e.g. us, de)")
	imagesCmd.Flags().Int("page", 0, "result page")
	imagesCmd.Flags().Duration("timeout", 0, "overall request deadline (default 30s)")
	imagesCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	imagesCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(imagesCmd)
}

func runImages(cmd *cobra.Command, args []string) error {
	req, eng, log, err := verticalRequest(cmd, args)
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(eng.Registry().Images()) == 0 {
		return fmt.Errorf("no image providers registered: configure a Serper API key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cmd))
	defer cancel()

	resp, err := eng.Images(ctx, req)
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
		size := ""
		if r.Width > 0 && r.Height > 0 {
			size = fmt.Sprintf("  (%dx%d)", r.Width, r.Height)
		}
		fmt.Fprintf(os.Stdout, "%2d. %s%s\n", i+1, r.Title, size)
		fmt.Fprintf(os.Stdout, "    %s\n", r.URL)
		if r.PageURL != "" {
			fmt.Fprintf(os.Stdout, "    from %s\n", r.PageURL)
		}
	}
	return nil
}

// verticalRequest parses the flags the image/video/news commands share.
func verticalRequest(cmd *cobra.Command, args []string) (engine.VerticalRequest, *engine.Engine, *zap.Logger, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return engine.VerticalRequest{}, nil, nil, fmt.Errorf("provide a search query")
	}

	eng, log, err := newEngine()
	if err != nil {
		return engine.VerticalRequest{}, nil, nil, err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	region, _ := cmd.Flags().GetString("region")
	page, _ := cmd.Flags().GetInt("page")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	req := engine.VerticalRequest{
		Query:   query,
		Limit:   limit,
		Region:  region,
		Page:    page,
		NoCache: noCache,
	}
	return req, eng, log, nil
}
