// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/aggregate"
	"github.com/pdiddy/research-assistant/internal/connector"
	"github.com/pdiddy/research-assistant/internal/docindex"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/server"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summarize"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the research HTTP API",
	Long: `serve starts the HTTP API: research job submission and history,
document upload, and question answering. Jobs and indexed documents persist
across restarts when store.path points at a SQLite file; otherwise state is
held in memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logging.New(viper.GetString("log_mode"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer log.Sync()

		jobs, archive, searcher, closeStore, err := openStores(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		embedder := newEmbedder(cfg.Embedding)
		summarizer := summarize.New(llm.NewClaudeModel(cfg.Summarize.ModelConfig, nil), cfg.Summarize)
		synthesizer := synthesize.New(llm.NewClaudeModel(cfg.Synthesize.ModelConfig, nil), embedder, cfg.Synthesize)

		index := docindex.New(llm.NewClaudeModel(cfg.DocumentIndex.ModelConfig, nil), embedder, archive, cfg.DocumentIndex, log)
		if err := rehydrate(cmd.Context(), index, archive, log); err != nil {
			return err
		}

		engine := pipeline.New(
			connector.All(cfg.Connectors),
			aggregate.New(cfg.Aggregator),
			summarizer,
			synthesizer,
			jobs,
			cfg.Workers,
			log,
		)
		defer engine.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(engine, jobs, index, searcher, cfg.Server, log).Run(ctx)
	},
}

// openStores selects the durable SQLite store when a path is configured,
// or the in-memory store otherwise. The passage archive and full-text
// search surfaces exist only in the SQLite case.
func openStores(cfg types.StoreConfig) (store.JobStore, docindex.Archive, server.PassageSearcher, func(), error) {
	if cfg.Path == "" {
		return store.NewMemoryStore(), nil, nil, func() {}, nil
	}
	s, err := store.NewSQLiteStore(cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return s, s, s, func() { s.Close() }, nil
}

// newEmbedder prefers the configured embeddings endpoint and falls back
// to the deterministic local embedder, which keeps the document index
// and synthesis clustering usable offline.
func newEmbedder(cfg types.EmbeddingConfig) llm.Embedder {
	if cfg.BaseURL != "" {
		return llm.NewOpenAIEmbedder(cfg, &http.Client{Timeout: cfg.Timeout})
	}
	return llm.HashEmbedder{}
}

// rehydrate reloads previously ingested documents and their passages
// from the archive into the in-process index.
func rehydrate(ctx context.Context, index *docindex.Index, archive docindex.Archive, log *zap.Logger) error {
	s, ok := archive.(*store.SQLiteStore)
	if !ok {
		return nil
	}
	docs, err := s.Documents(ctx)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	for _, doc := range docs {
		passages, err := s.Passages(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("loading passages for %s: %w", doc.ID, err)
		}
		index.Restore(doc, passages)
	}
	if len(docs) > 0 {
		log.Info("document index rehydrated", zap.Int("documents", len(docs)))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
