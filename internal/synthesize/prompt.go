// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// synthesisPromptTmpl asks the model to narrate a pre-computed report
// structure. The model names and describes themes and writes the prose
// sections; it does not choose which papers belong where, so its output
// cannot cite papers outside the corpus.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are a research synthesis system. A set of paper summaries has been grouped into themes. Write the narrative for the synthesis report.

Base every statement ONLY on the summaries below. Do not use outside knowledge.

Respond with a JSON object with these fields:
- themes: an array with EXACTLY {{len .Themes}} entries, one per theme group below and in the same order. Each entry has:
  - theme: a short topic label (3 to 8 words)
  - description: two or three sentences on what the grouped papers collectively address
- executive_summary: a paragraph answering the research question from the evidence in the summaries
- methodology_analysis: a paragraph comparing the research approaches used across the corpus

Do not include any text outside the JSON object.
{{if .Strict}}
Your previous response was not valid. Respond with ONLY the JSON object, with exactly {{len .Themes}} theme entries.
{{end}}
Research question: {{.Query}}

{{range $i, $t := .Themes}}Theme group {{$i}}:
{{range $t}}{{.}}
{{end}}
{{end}}`))

// synthesisPrompt renders the narration prompt. Each theme group lists
// its member summaries in compact form.
func synthesisPrompt(report *types.SynthesisReport, summaries []types.PaperSummary, strict bool) string {
	byID := make(map[string]types.PaperSummary, len(summaries))
	for _, s := range summaries {
		byID[s.PaperID] = s
	}

	groups := make([][]string, len(report.Themes))
	for i, t := range report.Themes {
		for _, id := range t.SupportingPaperIDs {
			s := byID[id]
			groups[i] = append(groups[i], "- ["+s.PaperID+"] "+s.Title+
				" | objective: "+s.Objective+
				" | findings: "+strings.Join(s.KeyFindings, "; ")+
				" | methodology: "+s.Methodology)
		}
	}

	var buf bytes.Buffer
	synthesisPromptTmpl.Execute(&buf, struct {
		Query  string
		Themes [][]string
		Strict bool
	}{
		Query:  report.Query,
		Themes: groups,
		Strict: strict,
	})
	return buf.String()
}
