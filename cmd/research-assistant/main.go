// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-assistant CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the research-assistant CLI.
var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Automated literature research and document question answering",
	Long: `research-assistant turns a natural-language research question into a
synthesized literature report: it searches arXiv, PubMed, Crossref, and DOAJ
concurrently, deduplicates and ranks the results, summarizes each paper, and
synthesizes themes, consensus, conflicts, and gaps across the corpus.

It also indexes uploaded PDF documents for citation-grounded question
answering. Run "serve" for the HTTP API or "search" for a one-shot report
on the terminal.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-assistant.yaml or ~/.config/research-assistant/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-assistant"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_ASSISTANT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the viper configuration, fills documented
// defaults, and resolves API keys from the secrets directory when the
// config file leaves them unset.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg = cfg.Defaults()

	cfg.Summarize.APIKey = loadedSecrets.Get("anthropic-api-key", cfg.Summarize.APIKey)
	cfg.Synthesize.APIKey = loadedSecrets.Get("anthropic-api-key", cfg.Synthesize.APIKey)
	cfg.DocumentIndex.APIKey = loadedSecrets.Get("anthropic-api-key", cfg.DocumentIndex.APIKey)
	cfg.Embedding.APIKey = loadedSecrets.Get("embeddings-api-key", cfg.Embedding.APIKey)
	cfg.Connectors.PubMedAPIKey = loadedSecrets.Get("pubmed-api-key", cfg.Connectors.PubMedAPIKey)
	cfg.Connectors.CrossrefMailto = loadedSecrets.Get("crossref-mailto", cfg.Connectors.CrossrefMailto)

	if cfg.Summarize.Model == "" {
		cfg.Summarize.Model = defaultClaudeModel
	}
	if cfg.Synthesize.Model == "" {
		cfg.Synthesize.Model = defaultClaudeModel
	}
	if cfg.DocumentIndex.Model == "" {
		cfg.DocumentIndex.Model = defaultClaudeModel
	}
	return cfg, nil
}

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
