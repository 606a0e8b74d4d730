package extractor

import (
	"math"
	"sort"
	"strings"

	"github.com/Lulzx/zpdf/contentstream"
)

// heading thresholds as ratios over the page's body font size
const (
	h1Ratio = 1.7
	h2Ratio = 1.4
	h3Ratio = 1.15
)

// PageMarkdown renders one page as markdown: headings inferred from
// font-size ratios over the page's dominant size, lines grouped into
// paragraphs by vertical gaps.
func (e *Extractor) PageMarkdown(page int) (string, error) {
	spans, err := e.Spans(page)
	if err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return "", nil
	}
	body := bodyFontSize(spans)
	lines := groupLines(spans)

	var sb strings.Builder
	prevBottom := math.Inf(1)
	prevSize := body
	prevLevel := 0
	for _, ln := range lines {
		text := strings.TrimSpace(ln.text())
		if text == "" {
			continue
		}
		size := ln.maxSize()
		level := headingLevel(size, body)
		gap := prevBottom - ln.top()
		paragraphBreak := gap > 1.5*prevSize

		if sb.Len() > 0 {
			// headings stand alone on both sides
			if level > 0 || prevLevel > 0 || paragraphBreak {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte(' ')
			}
		}
		if level > 0 {
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
		prevBottom = ln.bottom()
		prevSize = size
		prevLevel = level
	}
	return sb.String(), nil
}

// AllMarkdown renders every page, separated by a horizontal rule.
func (e *Extractor) AllMarkdown() (string, error) {
	parts := make([]string, 0, len(e.pages))
	for i := range e.pages {
		md, err := e.PageMarkdown(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, md)
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

func headingLevel(size, body float64) int {
	if body <= 0 {
		return 0
	}
	ratio := size / body
	switch {
	case ratio >= h1Ratio:
		return 1
	case ratio >= h2Ratio:
		return 2
	case ratio >= h3Ratio:
		return 3
	}
	return 0
}

// bodyFontSize picks the size carrying the most text on the page.
func bodyFontSize(spans []contentstream.TextSpan) float64 {
	weight := make(map[float64]int)
	for _, s := range spans {
		weight[s.FontSize] += len(s.Text)
	}
	best, bestW := 12.0, -1
	for size, w := range weight {
		if w > bestW && size > 0 {
			best, bestW = size, w
		}
	}
	return best
}

type mdLine struct{ spans []contentstream.TextSpan }

func (l *mdLine) text() string {
	parts := make([]string, len(l.spans))
	for i, s := range l.spans {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

func (l *mdLine) maxSize() float64 {
	m := 0.0
	for _, s := range l.spans {
		if s.FontSize > m {
			m = s.FontSize
		}
	}
	return m
}

func (l *mdLine) top() float64    { return l.spans[0].BBox[3] }
func (l *mdLine) bottom() float64 { return l.spans[0].BBox[1] }

// groupLines bins spans into lines by baseline and orders them top
// to bottom, left to right.
func groupLines(spans []contentstream.TextSpan) []mdLine {
	sorted := make([]contentstream.TextSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(a, b int) bool {
		ba := int(math.Round(sorted[a].BBox[1] / lineTolerance))
		bb := int(math.Round(sorted[b].BBox[1] / lineTolerance))
		if ba != bb {
			return ba > bb
		}
		return sorted[a].BBox[0] < sorted[b].BBox[0]
	})
	var lines []mdLine
	lastBin := math.MaxInt
	for _, s := range sorted {
		bin := int(math.Round(s.BBox[1] / lineTolerance))
		if len(lines) == 0 || bin != lastBin {
			lines = append(lines, mdLine{})
			lastBin = bin
		}
		lines[len(lines)-1].spans = append(lines[len(lines)-1].spans, s)
	}
	return lines
}
