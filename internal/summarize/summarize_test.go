// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const validSummaryJSON = `{
	"objective": "Determine whether sleep improves recall.",
	"methodology": "Randomized controlled trial with 120 participants.",
	"key_findings": ["Recall improved 20%.", "Effect persisted one week.", "No effect on recognition."],
	"conclusions": "Sleep consolidates episodic memory.",
	"limitations": "Small sample."
}`

// scriptedModel replays canned replies in order. Safe for the
// concurrent calls Batch makes.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	i := len(m.prompts) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

func testPaper() types.Paper {
	return types.Paper{
		ID:       "abcd1234",
		Title:    "Sleep and Recall",
		Authors:  []types.Author{{Name: "Anna Smith"}},
		Abstract: strings.Repeat("Sleep improves recall in adults. ", 20),
	}
}

func testConfig() types.SummarizeConfig {
	return types.PipelineConfig{}.Defaults().Summarize
}

func TestSummarizeParsesValidReply(t *testing.T) {
	m := &scriptedModel{replies: []string{validSummaryJSON}}
	s := New(m, testConfig())

	sum, err := s.Summarize(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if sum.PaperID != "abcd1234" {
		t.Errorf("PaperID = %q", sum.PaperID)
	}
	if sum.Objective == "" || sum.Methodology == "" || sum.Conclusions == "" {
		t.Errorf("summary incomplete: %+v", sum)
	}
	if len(sum.KeyFindings) != 3 {
		t.Errorf("KeyFindings = %v", sum.KeyFindings)
	}
	if len(sum.Authors) != 1 || sum.Authors[0] != "Anna Smith" {
		t.Errorf("Authors = %v", sum.Authors)
	}
	if sum.ConfidenceScore <= 0 || sum.ConfidenceScore > 1 {
		t.Errorf("ConfidenceScore = %v", sum.ConfidenceScore)
	}
	if sum.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestSummarizeToleratesWrappedJSON(t *testing.T) {
	m := &scriptedModel{replies: []string{"Here is the summary:\n```json\n" + validSummaryJSON + "\n```"}}
	s := New(m, testConfig())

	if _, err := s.Summarize(context.Background(), testPaper()); err != nil {
		t.Fatalf("Summarize() error on fenced JSON: %v", err)
	}
}

func TestSummarizeRetriesOnceOnMalformedReply(t *testing.T) {
	m := &scriptedModel{replies: []string{"I cannot produce JSON.", validSummaryJSON}}
	s := New(m, testConfig())

	sum, err := s.Summarize(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Summarize() error after retry: %v", err)
	}
	if len(m.prompts) != 2 {
		t.Fatalf("model called %d times, want 2", len(m.prompts))
	}
	if !strings.Contains(m.prompts[1], "ONLY the JSON object") {
		t.Error("retry prompt missing strict admonition")
	}
	if !sum.Complete() {
		t.Errorf("summary incomplete: %+v", sum)
	}
}

func TestSummarizeGivesUpAfterRetry(t *testing.T) {
	m := &scriptedModel{replies: []string{"nope", "still nope"}}
	s := New(m, testConfig())

	_, err := s.Summarize(context.Background(), testPaper())
	if !errors.Is(err, types.ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
	if len(m.prompts) != 2 {
		t.Errorf("model called %d times, want 2", len(m.prompts))
	}
}

func TestSummarizeRejectsFindingsOutOfRange(t *testing.T) {
	tooFew := `{"objective": "o", "methodology": "m", "key_findings": ["only one"], "conclusions": "c"}`
	m := &scriptedModel{replies: []string{tooFew, tooFew}}
	s := New(m, testConfig())

	if _, err := s.Summarize(context.Background(), testPaper()); !errors.Is(err, types.ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestSummarizeNoAbstract(t *testing.T) {
	m := &scriptedModel{replies: []string{validSummaryJSON}}
	s := New(m, testConfig())

	p := testPaper()
	p.Abstract = "  "
	_, err := s.Summarize(context.Background(), p)
	if !errors.Is(err, types.ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
	if len(m.prompts) != 0 {
		t.Error("model should not be called without an abstract")
	}
}

func TestBatchCollectsWarningsAndKeepsOrder(t *testing.T) {
	papers := []types.Paper{testPaper(), testPaper(), testPaper()}
	papers[0].ID, papers[0].Title = "p0", "First"
	papers[1].ID, papers[1].Abstract = "p1", "" // fails: no abstract
	papers[2].ID, papers[2].Title = "p2", "Third"

	m := &scriptedModel{replies: []string{validSummaryJSON}}
	s := New(m, testConfig())

	sums, warnings := s.Batch(context.Background(), papers)
	if len(sums) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(sums))
	}
	if sums[0].PaperID != "p0" || sums[1].PaperID != "p2" {
		t.Errorf("order not preserved: %q, %q", sums[0].PaperID, sums[1].PaperID)
	}
	if len(warnings) != 1 || warnings[0].Subject != "p1" {
		t.Errorf("warnings = %+v", warnings)
	}
	if warnings[0].Stage != types.StageSummarizing {
		t.Errorf("warning stage = %q", warnings[0].Stage)
	}
}

func TestConfidencePenalties(t *testing.T) {
	full := types.PaperSummary{
		KeyFindings: []string{"a", "b", "c", "d"},
		Limitations: "stated",
	}
	long := testPaper()
	short := testPaper()
	short.Abstract = "Too short."

	if c := confidence(full, long); c != 0.9 {
		t.Errorf("no penalties = %v, want 0.9", c)
	}
	if c := confidence(full, short); c >= confidence(full, long) {
		t.Error("short abstract should lower confidence")
	}
	noLimits := full
	noLimits.Limitations = ""
	if c := confidence(noLimits, long); c >= confidence(full, long) {
		t.Error("absent limitations should lower confidence")
	}
}
