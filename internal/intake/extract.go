// File: internal/intake/extract.go
package intake

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// baselines closer than this share of the font size sit on one line
	lineTolerance = 0.5
	// horizontal gaps wider than this share of the font size separate words
	wordGap = 0.2
)

// ReadPDFText returns the text of every page, one line per visual line.
func ReadPDFText(r io.ReaderAt, size int64) (text string, pages int, err error) {
	defer func() {
		// the pdf package panics on some malformed streams
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reading pdf: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", 0, fmt.Errorf("opening pdf: %w", err)
	}
	var b strings.Builder
	pages = doc.NumPage()
	for i := 1; i <= pages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines := pageLines(page.Content().Text)
		if len(lines) == 0 {
			if lines, err = rowLines(page); err != nil {
				return "", 0, fmt.Errorf("reading page %d: %w", i, err)
			}
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), pages, nil
}

// pageLines rebuilds visual lines from positioned glyphs: top to bottom by
// baseline, then left to right. Glyphs at the same X keep content order,
// which is what fonts without width tables produce.
func pageLines(texts []pdf.Text) []string {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || t.S == "\n" || t.S == "\r" {
			continue
		}
		glyphs = append(glyphs, t)
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var lines []string
	for start := 0; start < len(glyphs); {
		tolerance := lineTolerance * glyphs[start].FontSize
		if tolerance <= 0 {
			tolerance = 1
		}
		end := start + 1
		for end < len(glyphs) && glyphs[start].Y-glyphs[end].Y <= tolerance {
			end++
		}
		row := glyphs[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		if line := joinGlyphs(row); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		start = end
	}
	return lines
}

func joinGlyphs(row []pdf.Text) string {
	var b strings.Builder
	for i, t := range row {
		if i > 0 {
			prev := row[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > wordGap*t.FontSize && prev.S != " " && t.S != " " {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}

// rowLines is the fallback for pages whose content yields no glyphs.
func rowLines(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, joinRow(row.Content))
	}
	return lines, nil
}

// joinRow glues the text chunks of a row back together, one space between
// chunks that do not already carry one.
func joinRow(texts pdf.TextHorizontal) string {
	var b strings.Builder
	for i, t := range texts {
		if i > 0 && !strings.HasSuffix(texts[i-1].S, " ") && !strings.HasPrefix(t.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
	}
	return b.String()
}
