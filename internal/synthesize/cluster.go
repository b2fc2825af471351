// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// cluster groups summaries by topic: one embedding per summary, then a
// greedy pass that joins each summary to the first cluster whose
// centroid clears the similarity threshold, or starts a new cluster.
// Clusters come back largest first.
type cluster struct {
	summaries []types.PaperSummary
	centroid  []float64
}

func (s *Synthesizer) clusterSummaries(ctx context.Context, summaries []types.PaperSummary) ([]cluster, error) {
	texts := make([]string, len(summaries))
	for i, sum := range summaries {
		texts[i] = clusterText(sum)
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding summaries: %w", err)
	}

	var clusters []cluster
	for i, sum := range summaries {
		best, bestSim := -1, s.cfg.ClusterThreshold
		for j := range clusters {
			if sim := llm.Cosine(vecs[i], clusters[j].centroid); sim >= bestSim {
				best, bestSim = j, sim
			}
		}
		if best < 0 {
			clusters = append(clusters, cluster{
				summaries: []types.PaperSummary{sum},
				centroid:  append([]float64(nil), vecs[i]...),
			})
			continue
		}
		c := &clusters[best]
		n := float64(len(c.summaries))
		for k := range c.centroid {
			c.centroid[k] = (c.centroid[k]*n + vecs[i][k]) / (n + 1)
		}
		c.summaries = append(c.summaries, sum)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].summaries) > len(clusters[j].summaries)
	})
	if len(clusters) > s.cfg.MaxThemes {
		clusters = clusters[:s.cfg.MaxThemes]
	}
	return clusters, nil
}

// clusterText is the text a summary is embedded by: objective plus
// findings, the parts that carry the paper's topic.
func clusterText(s types.PaperSummary) string {
	return s.Objective + " " + strings.Join(s.KeyFindings, " ")
}

func (c cluster) paperIDs() []string {
	ids := make([]string, len(c.summaries))
	for i, s := range c.summaries {
		ids[i] = s.PaperID
	}
	return ids
}
