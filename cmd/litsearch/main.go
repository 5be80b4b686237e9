// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litsearch CLI: parallel
// literature search across academic databases, with deduplication,
// hybrid ranking, and a local corpus store.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshintel/litsearch/internal/secrets"
	"github.com/meshintel/litsearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide structured logger, configured in the root
// PersistentPreRunE before any subcommand runs.
var logger = zap.NewNop()

// secretDefault returns fallback when set, otherwise the secret value
// for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the litsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "litsearch",
	Short: "Search academic literature databases in parallel",
	Long: `litsearch queries Semantic Scholar, arXiv, and PubMed in parallel,
deduplicates the results across databases, and ranks them by a hybrid of
semantic similarity and keyword overlap. Retrieved papers can be saved
into a local corpus for offline full-text and vector search.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(cmd); err != nil {
			return err
		}

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
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func setupLogger(cmd *cobra.Command) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = l
	zap.ReplaceGlobals(l)
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litsearch.yaml or ~/.config/litsearch/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litsearch"))
		}
	}

	viper.SetEnvPrefix("LITSEARCH")
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setConfigDefaults() {
	viper.SetDefault("search.http.timeout", "30s")
	viper.SetDefault("search.http.user_agent", "litsearch/"+version)
	viper.SetDefault("search.max_results_per_source", 20)
	viper.SetDefault("search.max_total_results", 50)
	viper.SetDefault("search.source_timeout", "30s")

	for src, rate := range map[string]map[string]any{
		"semantic_scholar": {"capacity": 1, "window": "1s"},
		"arxiv":            {"capacity": 1, "window": "3s"},
		"pubmed":           {"capacity": 3, "window": "1s"},
	} {
		viper.SetDefault("search."+src+".enabled", true)
		viper.SetDefault("search."+src+".max_retries", 3)
		for k, v := range rate {
			viper.SetDefault("search."+src+".rate_limit."+k, v)
		}
		viper.SetDefault("search."+src+".rate_limit.max_wait", "30s")
	}

	viper.SetDefault("dedup.title_threshold", 0.9)
	viper.SetDefault("rank.semantic_weight", 0.7)
	viper.SetDefault("rank.keyword_weight", 0.3)
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)
	viper.SetDefault("embedding.cache_size", 4096)
	viper.SetDefault("corpus.dir", "corpus")
	viper.SetDefault("corpus.max_results", 20)
}

// engineConfig materializes the full configuration from viper and fills
// credentials from the secrets directory when the config leaves them
// blank.
func engineConfig() (types.EngineConfig, error) {
	var cfg types.EngineConfig
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.Search.SemanticScholar.APIKey = secretDefault("semantic-scholar-api-key", cfg.Search.SemanticScholar.APIKey)
	cfg.Search.Pubmed.APIKey = secretDefault("ncbi-api-key", cfg.Search.Pubmed.APIKey)
	cfg.Search.Pubmed.Email = secretDefault("ncbi-email", cfg.Search.Pubmed.Email)
	cfg.Embedding.APIKey = secretDefault("openai-api-key", cfg.Embedding.APIKey)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
