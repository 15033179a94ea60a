// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperfinder CLI. Subcommands
// cover job submission (search), variant preview, job inspection, CSV
// export, and the HTTP server.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Liang-Chaoyue/PaperFinder/internal/secrets"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value
// for key if it exists.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paperfinder CLI.
var rootCmd = &cobra.Command{
	Use:   "paperfinder",
	Short: "Aggregate scholarly publications for a researcher",
	Long: `paperfinder searches bibliographic providers (OpenAlex, Crossref, arXiv,
Google Scholar via SerpAPI) for papers by a named researcher, expanding the
name into romanization and ordering variants, filtering candidates against
the claimed identity, and deduplicating results into a local SQLite catalog.

Submit searches with the search subcommand, inspect them with jobs, export
curated results with export, or run the whole thing as an HTTP service with
serve.`,
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperfinder.yaml or ~/.config/paperfinder/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: paperfinder.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperfinder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperfinder"))
		}
	}

	viper.SetEnvPrefix("PAPERFINDER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// appConfig assembles the full configuration from the config file,
// environment, secrets, and the --db override, with defaults filled in.
func appConfig(cmd *cobra.Command) types.AppConfig {
	var cfg types.AppConfig
	cfg.Search.Timeout = viper.GetDuration("search.timeout")
	cfg.Search.UserAgent = viper.GetString("search.user_agent")
	cfg.Search.MaxResults = viper.GetInt("search.max_results")
	cfg.Search.MaxVariants = viper.GetInt("search.max_variants")
	cfg.Search.UnitPause = viper.GetDuration("search.unit_pause")
	cfg.Search.Providers = viper.GetStringSlice("search.providers")
	cfg.Search.OpenAlexEmail = secretDefault("openalex-email", viper.GetString("search.openalex_email"))
	cfg.Search.CrossrefMailto = secretDefault("crossref-mailto", viper.GetString("search.crossref_mailto"))
	cfg.Search.SerpAPIKey = secretDefault("serpapi-api-key", viper.GetString("search.serpapi_key"))
	cfg.Store.Path = viper.GetString("store.path")
	cfg.Queue.Workers = viper.GetInt("queue.workers")
	cfg.Queue.MaxAttempts = viper.GetInt("queue.max_attempts")
	cfg.Queue.RetryBaseDelay = viper.GetDuration("queue.retry_base_delay")
	cfg.Server.Addr = viper.GetString("server.addr")

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	return cfg.WithDefaults()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
