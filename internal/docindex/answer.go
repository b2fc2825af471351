// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// answerPromptTmpl constrains the model to the retrieved passages. Every
// claim must cite a passage id from the list; questions the passages do
// not cover must be declined, not answered from memory.
var answerPromptTmpl = template.Must(template.New("answer").Parse(`You are a document question answering system. Answer the question using ONLY the passages below.

Rules:
- Every statement in your answer must be supported by at least one passage.
- Cite passages by their id.
- If the passages do not contain the answer, say so; do not answer from outside knowledge.

Respond with a JSON object:
- answer: your grounded answer
- citations: an array of the passage ids you relied on (non-empty)

Do not include any text outside the JSON object.
{{if .Strict}}
Your previous response was not valid: it cited passage ids that do not exist in the list below. Cite ONLY ids from the list, and respond with ONLY the JSON object.
{{end}}
Question: {{.Question}}

Passages:
{{range .Passages}}[{{.PassageID}}] (page {{.Page}}) {{.Text}}
{{end}}`))

// groundedReply is the model's answer envelope.
type groundedReply struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// answer runs the grounded model pass over the retrieved passages.
// Citations outside the retrieved set are stripped; a reply left with no
// valid citation gets one stricter retry before failing.
func (ix *Index) answer(ctx context.Context, question string, hits []scored) (types.GroundedAnswer, error) {
	byID := make(map[string]types.DocumentPassage, len(hits))
	passages := make([]types.DocumentPassage, len(hits))
	for i, h := range hits {
		byID[h.passage.PassageID] = h.passage
		passages[i] = h.passage
	}

	reply, err := ix.complete(ctx, question, passages, false)
	if err != nil {
		return types.GroundedAnswer{}, err
	}
	ans, ok := validate(reply, byID)
	if !ok {
		if reply, err = ix.complete(ctx, question, passages, true); err != nil {
			return types.GroundedAnswer{}, err
		}
		if ans, ok = validate(reply, byID); !ok {
			return types.GroundedAnswer{}, fmt.Errorf("model cited no passage from the document: %w", types.ErrNoRelevantContext)
		}
	}
	return ans, nil
}

func (ix *Index) complete(ctx context.Context, question string, passages []types.DocumentPassage, strict bool) (string, error) {
	var buf bytes.Buffer
	answerPromptTmpl.Execute(&buf, struct {
		Question string
		Passages []types.DocumentPassage
		Strict   bool
	}{Question: question, Passages: passages, Strict: strict})

	reply, err := ix.model.Complete(ctx, buf.String())
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return reply, nil
}

// validate parses the reply and keeps only citations that name retrieved
// passages. A reply that parses but cites nothing valid fails validation.
func validate(reply string, byID map[string]types.DocumentPassage) (types.GroundedAnswer, bool) {
	var gr groundedReply
	if err := json.Unmarshal([]byte(extractJSON(reply)), &gr); err != nil || gr.Answer == "" {
		return types.GroundedAnswer{}, false
	}

	ans := types.GroundedAnswer{Answer: gr.Answer}
	seen := make(map[string]bool)
	for _, id := range gr.Citations {
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ans.Citations = append(ans.Citations, p)
	}
	return ans, len(ans.Citations) > 0
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
