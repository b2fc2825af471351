// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docindex

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// rowTolerance is the vertical distance, in PDF points, within which two
// glyphs belong to the same text row.
const rowTolerance = 2.0

// paragraphGapFactor splits rows into separate passages when the gap
// between them exceeds this multiple of the typical row spacing.
const paragraphGapFactor = 1.8

// isPDF reports whether the bytes carry the PDF magic header.
func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// parsePDF extracts positioned passages from a PDF. Glyphs are grouped
// into rows by vertical position, rows into passages at paragraph-sized
// gaps. Each passage carries its page and the bounding box of its rows.
// Passages shorter than minTokens words are dropped as page furniture.
func parsePDF(data []byte, minTokens int) (pages int, passages []types.DocumentPassage, err error) {
	if !isPDF(data) {
		return 0, nil, fmt.Errorf("%w: missing PDF header", types.ErrParseFailed)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", types.ErrParseFailed, err)
	}

	pages = r.NumPage()
	seq := 0
	for pageNum := 1; pageNum <= pages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		for _, para := range paragraphs(page.Content().Text) {
			if len(strings.Fields(para.text)) < minTokens {
				continue
			}
			seq++
			passages = append(passages, types.DocumentPassage{
				PassageID: fmt.Sprintf("p%d-%d", pageNum, seq),
				Page:      pageNum,
				Region:    para.region,
				Text:      para.text,
			})
		}
	}

	if len(passages) == 0 {
		return 0, nil, fmt.Errorf("%w: no extractable text", types.ErrParseFailed)
	}
	return pages, passages, nil
}

type paragraph struct {
	text   string
	region types.Region
}

type row struct {
	y      float64
	glyphs []pdf.Text
}

// paragraphs groups one page's glyphs into rows, then rows into
// paragraphs at large vertical gaps.
func paragraphs(glyphs []pdf.Text) []paragraph {
	if len(glyphs) == 0 {
		return nil
	}

	var rows []row
	for _, g := range glyphs {
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-g.Y) <= rowTolerance {
				rows[i].glyphs = append(rows[i].glyphs, g)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: g.Y, glyphs: []pdf.Text{g}})
		}
	}

	// Top of the page has the largest Y in PDF coordinates.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	gap := typicalGap(rows)
	var out []paragraph
	var cur []row
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, buildParagraph(cur))
		cur = nil
	}
	for i, rw := range rows {
		if i > 0 && rows[i-1].y-rw.y > gap*paragraphGapFactor {
			flush()
		}
		cur = append(cur, rw)
	}
	flush()
	return out
}

// typicalGap is the median vertical distance between consecutive rows.
func typicalGap(rows []row) float64 {
	if len(rows) < 2 {
		return math.MaxFloat64
	}
	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		gaps = append(gaps, rows[i-1].y-rows[i].y)
	}
	sort.Float64s(gaps)
	return gaps[(len(gaps)-1)/2]
}

func buildParagraph(rows []row) paragraph {
	reg := types.Region{X0: math.MaxFloat64, Y0: math.MaxFloat64}
	var lines []string
	for _, rw := range rows {
		sort.SliceStable(rw.glyphs, func(i, j int) bool { return rw.glyphs[i].X < rw.glyphs[j].X })
		var b strings.Builder
		for _, g := range rw.glyphs {
			b.WriteString(g.S)
			reg.X0 = math.Min(reg.X0, g.X)
			reg.X1 = math.Max(reg.X1, g.X+g.W)
			reg.Y0 = math.Min(reg.Y0, g.Y)
			reg.Y1 = math.Max(reg.Y1, g.Y+g.FontSize)
		}
		if line := strings.Join(strings.Fields(b.String()), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return paragraph{text: strings.Join(lines, " "), region: reg}
}
