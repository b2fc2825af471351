// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// summaryPromptTmpl instructs the model to extract a structured summary
// from one paper's metadata and abstract, grounded strictly in the
// provided text.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`You are a research paper summarization system. Read the paper metadata and abstract below and produce a structured summary.

Base every statement ONLY on the text provided. Do not use outside knowledge about the paper, its authors, or its field. If the abstract does not state something, leave the corresponding field conservative rather than inventing content.

Respond with a JSON object with these fields:
- objective: the main research objective or question (one or two sentences)
- methodology: the research approach used
- key_findings: an array of {{.MinFindings}} to {{.MaxFindings}} main findings, each one sentence
- conclusions: the authors' conclusions
- limitations: limitations stated by the authors, or "" if none are stated

Do not include any text outside the JSON object.
{{if .Strict}}
Your previous response was not valid. Respond with ONLY the JSON object: no markdown fences, no commentary, exactly the fields listed.
{{end}}
Title: {{.Title}}
Authors: {{.Authors}}
Published: {{.Published}}
Source: {{.Source}}

Abstract:
{{.Abstract}}
`))

// summaryPrompt renders the summarization prompt for one paper. strict
// adds the retry admonition after a malformed reply.
func summaryPrompt(p types.Paper, strict bool) string {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	published := ""
	if !p.PublishedDate.IsZero() {
		published = p.PublishedDate.Format("2006-01-02")
	}

	var buf bytes.Buffer
	summaryPromptTmpl.Execute(&buf, struct {
		MinFindings, MaxFindings            int
		Title, Authors, Published, Abstract string
		Source                              types.Source
		Strict                              bool
	}{
		MinFindings: minFindings,
		MaxFindings: maxFindings,
		Title:       p.Title,
		Authors:     strings.Join(names, ", "),
		Published:   published,
		Source:      p.Source,
		Abstract:    p.Abstract,
		Strict:      strict,
	})
	return buf.String()
}
