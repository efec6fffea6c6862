// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the metasearch CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshintel/metasearch/internal/engine"
	"github.com/meshintel/metasearch/internal/secrets"
	"github.com/meshintel/metasearch/internal/source"
	"github.com/meshintel/metasearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the metasearch CLI.
var rootCmd = &cobra.Command{
	Use:   "metasearch",
	Short: "Privacy-friendly meta-search across multiple engines",
	Long: `metasearch fans a query out across several search engines (DuckDuckGo,
Brave, Mojeek, and Google via Serper when an API key is configured), then
deduplicates, merges, and ranks the combined results.

Each vertical is a subcommand: search for web results, images, videos, and
news. The sources subcommand reports what is registered and how each
upstream has been behaving.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./metasearch.yaml or ~/.config/metasearch/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log upstream activity to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("metasearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "metasearch"))
		}
	}

	viper.SetEnvPrefix("METASEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig builds the engine configuration: defaults, overridden by the
// config file / environment, with credentials resolved through .secrets/.
func engineConfig() types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if viper.IsSet("timeout") {
		cfg.Timeout = viper.GetDuration("timeout")
	}
	if viper.IsSet("user_agent") {
		cfg.UserAgent = viper.GetString("user_agent")
	}
	if viper.IsSet("max_concurrent") {
		cfg.MaxConcurrent = viper.GetInt("max_concurrent")
	}
	if viper.IsSet("max_per_source_concurrent") {
		cfg.MaxPerSourceConcurrent = viper.GetInt("max_per_source_concurrent")
	}
	if viper.IsSet("default_weight") {
		cfg.DefaultWeight = viper.GetFloat64("default_weight")
	}
	if viper.IsSet("preferred_sources") {
		cfg.PreferredSources = nil
		for _, s := range viper.GetStringSlice("preferred_sources") {
			cfg.PreferredSources = append(cfg.PreferredSources, types.SourceID(s))
		}
	}
	if viper.IsSet("trust_weights") {
		for id, w := range viper.GetStringMap("trust_weights") {
			if f, ok := w.(float64); ok {
				cfg.TrustWeights[types.SourceID(id)] = f
			}
		}
	}

	if viper.IsSet("quota.baseline_budget") {
		cfg.Quota.BaselineBudget = viper.GetInt("quota.baseline_budget")
	}
	if viper.IsSet("quota.preferred_share") {
		cfg.Quota.PreferredShare = viper.GetInt("quota.preferred_share")
	}
	if viper.IsSet("quota.min_per_source") {
		cfg.Quota.MinPerSource = viper.GetInt("quota.min_per_source")
	}
	if viper.IsSet("quota.max_per_source") {
		cfg.Quota.MaxPerSource = viper.GetInt("quota.max_per_source")
	}
	if viper.IsSet("quota.fallback_limit") {
		cfg.Quota.FallbackLimit = viper.GetInt("quota.fallback_limit")
	}

	if viper.IsSet("breaker.cooldown") {
		cfg.Breaker.Cooldown = viper.GetDuration("breaker.cooldown")
	}

	if viper.IsSet("cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	}
	if viper.IsSet("cache.capacity") {
		cfg.Cache.Capacity = viper.GetInt("cache.capacity")
	}
	cfg.Cache.RedisAddr = viper.GetString("cache.redis_addr")
	cfg.Cache.RedisDB = viper.GetInt("cache.redis_db")
	cfg.Cache.RedisPassword = secretDefault("redis-password", viper.GetString("cache.redis_password"))

	cfg.SerperAPIKey = secretDefault("serper-api-key", viper.GetString("serper_api_key"))
	return cfg
}

// newEngine wires a ready-to-use engine from the resolved configuration.
func newEngine() (*engine.Engine, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	cfg := engineConfig()
	reg := source.NewRegistry(cfg, nil)
	return engine.New(cfg, reg, log), log, nil
}

func newLogger() (*zap.Logger, error) {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}

// requestTimeout resolves the --timeout flag with a sane default.
func requestTimeout(cmd *cobra.Command) time.Duration {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return timeout
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
