// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// ResultFile is the on-disk representation of a finished research run.
// A run saved to a file can be reloaded and re-rendered later without
// re-querying sources or the model.
type ResultFile struct {
	Request types.ResearchRequest `yaml:"request"`
	Result  types.ResearchResult  `yaml:"result"`
	Summary ResultSummary         `yaml:"summary"`
}

// ResultSummary stores run statistics and a timestamp.
type ResultSummary struct {
	Papers    int       `yaml:"papers"`
	Summaries int       `yaml:"summaries"`
	Themes    int       `yaml:"themes"`
	Warnings  []string  `yaml:"warnings,omitempty"`
	SavedAt   time.Time `yaml:"saved_at"`
}

// WriteResultFile saves a request and its result to a YAML file.
func WriteResultFile(path string, req types.ResearchRequest, result types.ResearchResult) error {
	rf := ResultFile{
		Request: req,
		Result:  result,
		Summary: ResultSummary{
			Papers:    len(result.Papers),
			Summaries: len(result.Summaries),
			Themes:    len(result.Report.Themes),
			SavedAt:   time.Now(),
		},
	}
	for _, w := range result.Warnings {
		rf.Summary.Warnings = append(rf.Summary.Warnings, fmt.Sprintf("%s/%s: %s", w.Stage, w.Subject, w.Message))
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("encoding result file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result file %s: %w", path, err)
	}
	return nil
}

// ReadResultFile loads a previously saved result file.
func ReadResultFile(path string) (ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ResultFile{}, fmt.Errorf("reading result file %s: %w", path, err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return ResultFile{}, fmt.Errorf("parsing result file %s: %w", path, err)
	}
	return rf, nil
}
