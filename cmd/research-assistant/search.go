// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/aggregate"
	"github.com/pdiddy/research-assistant/internal/connector"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summarize"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var searchFlags struct {
	maxPapers        int
	sources          []string
	includePreprints bool
	yearFrom         int
	yearTo           int
	language         string
	out              string
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one research query and print the report",
	Long: `search runs the full research pipeline for a single query and prints
the synthesized Markdown report to stdout. Progress goes to stderr. The run
is in-memory; use serve with store.path for persistent job history.`,
	Args: cobra.ExactArgs(1),
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

		req := types.ResearchRequest{
			Query:            args[0],
			MaxPapers:        searchFlags.maxPapers,
			IncludePreprints: searchFlags.includePreprints,
			Language:         searchFlags.language,
		}
		for _, s := range searchFlags.sources {
			req.Sources = append(req.Sources, types.Source(strings.ToLower(s)))
		}
		if searchFlags.yearFrom > 0 {
			req.DateRange.From = time.Date(searchFlags.yearFrom, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		if searchFlags.yearTo > 0 {
			req.DateRange.To = time.Date(searchFlags.yearTo, 12, 31, 23, 59, 59, 0, time.UTC)
		}

		jobs := store.NewMemoryStore()
		embedder := newEmbedder(cfg.Embedding)
		engine := pipeline.New(
			connector.All(cfg.Connectors),
			aggregate.New(cfg.Aggregator),
			summarize.New(llm.NewClaudeModel(cfg.Summarize.ModelConfig, nil), cfg.Summarize),
			synthesize.New(llm.NewClaudeModel(cfg.Synthesize.ModelConfig, nil), embedder, cfg.Synthesize),
			jobs,
			cfg.Workers,
			log,
		)
		defer engine.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job, err := engine.Submit(ctx, req)
		if err != nil {
			return err
		}

		result, err := waitForResult(ctx, engine, jobs, job.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Completed in %s: %d papers, %d summaries\n",
			result.ProcessingTime.Round(time.Millisecond), len(result.Papers), len(result.Summaries))
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning (%s/%s): %s\n", w.Stage, w.Subject, w.Message)
		}
		if searchFlags.out != "" {
			if err := report.WriteResultFile(searchFlags.out, req, result); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved result to %s\n", searchFlags.out)
		}
		fmt.Println(result.FormattedReport)
		return nil
	},
}

// waitForResult polls the job until it reaches a terminal state,
// reporting stage transitions on stderr. Interrupting the wait cancels
// the job.
func waitForResult(ctx context.Context, engine *pipeline.Engine, jobs store.JobStore, jobID string) (types.ResearchResult, error) {
	var lastStage types.ProgressStage
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			engine.Cancel(context.Background(), jobID)
			return types.ResearchResult{}, ctx.Err()
		case <-ticker.C:
		}

		job, err := jobs.GetJob(ctx, jobID)
		if err != nil {
			return types.ResearchResult{}, err
		}
		if job.Stage != lastStage {
			lastStage = job.Stage
			fmt.Fprintf(os.Stderr, "stage: %s\n", job.Stage)
		}
		if !job.Status.Terminal() {
			continue
		}
		if job.Status != types.JobCompleted {
			return types.ResearchResult{}, fmt.Errorf("job %s: %s", job.Status, job.FailureReason)
		}
		return jobs.GetResult(ctx, jobID)
	}
}

func init() {
	searchCmd.Flags().IntVar(&searchFlags.maxPapers, "max-papers", 20, "maximum papers in the aggregated result set (1-50)")
	searchCmd.Flags().StringSliceVar(&searchFlags.sources, "sources", nil, "sources to query (arxiv, pubmed, crossref, doaj); default all")
	searchCmd.Flags().BoolVar(&searchFlags.includePreprints, "include-preprints", true, "keep preprint-only papers")
	searchCmd.Flags().IntVar(&searchFlags.yearFrom, "year-from", 0, "earliest publication year")
	searchCmd.Flags().IntVar(&searchFlags.yearTo, "year-to", 0, "latest publication year")
	searchCmd.Flags().StringVar(&searchFlags.language, "language", "", "ISO 639-1 language filter (default en)")
	searchCmd.Flags().StringVar(&searchFlags.out, "out", "", "save the request and result to a YAML file")

	rootCmd.AddCommand(searchCmd)
}
