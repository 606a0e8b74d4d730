// Package extractor assembles interpreter output into reading-order
// text and serves the auxiliary document surfaces (metadata, outline,
// labels, search, links, images, forms, markdown).
package extractor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Lulzx/zpdf/contentstream"
	"github.com/Lulzx/zpdf/fonts"
	"github.com/Lulzx/zpdf/observability"
	"github.com/Lulzx/zpdf/pages"
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/structure"
)

// Source is the document view the extractor reads through.
type Source interface {
	raw.Getter
	DecodedStream(obj raw.Object) ([]byte, *raw.Dict, error)
}

var ErrPageNotFound = errors.New("page not found")

// PageSeparator joins pages in whole-document output.
const PageSeparator = "\x0c"

// DefaultCoverageRatio accepts structured output when it reaches this
// share of the stream-order length.
const DefaultCoverageRatio = 0.6

// geometric fallback line binning tolerance, in points
const lineTolerance = 3.0

type Options struct {
	CoverageRatio float64
	Logger        observability.Logger
}

// Extractor owns the per-document extraction state: flattened pages,
// the shared font cache, and the lazily parsed structure tree.
type Extractor struct {
	src     Source
	catalog *raw.Dict
	pages   []pages.Page
	fonts   *fonts.Cache
	sink    *recovery.Sink
	log     observability.Logger
	ratio   float64

	tree       *structure.Tree
	treeLoaded bool
	pageByNum  map[int]int
}

// New flattens the page tree and prepares extraction state. The
// structure tree is not touched until reading-order assembly asks
// for it.
func New(src Source, trailer *raw.Dict, sink *recovery.Sink, opts Options) (*Extractor, error) {
	if opts.CoverageRatio <= 0 {
		opts.CoverageRatio = DefaultCoverageRatio
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger{}
	}
	catalog := raw.DerefDict(src, lookupIn(trailer, "Root"))
	flat, err := pages.Flatten(src, catalog, sink)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		src:       src,
		catalog:   catalog,
		pages:     flat,
		fonts:     fonts.NewCache(src),
		sink:      sink,
		log:       opts.Logger,
		ratio:     opts.CoverageRatio,
		pageByNum: make(map[int]int, len(flat)),
	}
	for i := range flat {
		e.pageByNum[flat[i].Ref.Num] = i
	}
	e.log.Debug("pages flattened", observability.Int("count", len(flat)))
	return e, nil
}

func (e *Extractor) PageCount() int { return len(e.pages) }

func (e *Extractor) Page(i int) (*pages.Page, error) {
	if i < 0 || i >= len(e.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageNotFound, i, len(e.pages))
	}
	return &e.pages[i], nil
}

// StreamText extracts one page in raw content-stream order.
func (e *Extractor) StreamText(i int) (string, error) {
	p, err := e.Page(i)
	if err != nil {
		return "", err
	}
	return contentstream.ExtractText(e.src, e.fonts, p.Resources, p.Contents, i, e.sink)
}

// PageText extracts one page in reading order: structure-tree order
// when the tree covers enough of the page, stream order otherwise,
// geometric assembly as the last resort.
func (e *Extractor) PageText(i int) (string, error) {
	p, err := e.Page(i)
	if err != nil {
		return "", err
	}
	stream, streamErr := contentstream.ExtractText(e.src, e.fonts, p.Resources, p.Contents, i, e.sink)

	if tree := e.structTree(); tree != nil && streamErr == nil {
		if order := tree.PageOrder(p.Ref.Num); len(order) > 0 {
			if structured, ok := e.structuredText(p, i, order); ok {
				if float64(len(structured)) >= e.ratio*float64(len(stream)) {
					return structured, nil
				}
				e.log.Debug("partial tagging, using stream order",
					observability.Int("page", i),
					observability.Int("structured_len", len(structured)),
					observability.Int("stream_len", len(stream)))
			}
		}
	}
	if streamErr == nil {
		return stream, nil
	}

	spans, gerr := contentstream.ExtractSpans(e.src, e.fonts, p.Resources, p.Contents, i, e.sink)
	if gerr != nil || len(spans) == 0 {
		return "", streamErr
	}
	return assembleGeometric(spans), nil
}

// structuredText concatenates per-MCID buffers in tree order with a
// single space between non-empty chunks.
func (e *Extractor) structuredText(p *pages.Page, i int, order []structure.MarkedContentRef) (string, bool) {
	byMCID, err := contentstream.ExtractByMCID(e.src, e.fonts, p.Resources, p.Contents, i, e.sink)
	if err != nil {
		return "", false
	}
	var parts []string
	for _, mcr := range order {
		if chunk := byMCID[mcr.MCID]; chunk != "" {
			parts = append(parts, chunk)
		}
	}
	return strings.Join(parts, " "), true
}

// AllText extracts the whole document, pages separated by form feed
// and no trailing newline. Fast mode keeps stream order everywhere.
func (e *Extractor) AllText(accurate bool) (string, error) {
	parts := make([]string, len(e.pages))
	for i := range e.pages {
		var txt string
		var err error
		if accurate {
			txt, err = e.PageText(i)
		} else {
			txt, err = e.StreamText(i)
		}
		if err != nil {
			if errors.Is(err, ErrPageNotFound) {
				return "", err
			}
			txt = "" // degraded page, others continue
		}
		parts[i] = txt
	}
	return strings.Join(parts, PageSeparator), nil
}

// Spans extracts bounds-mode spans for one page.
func (e *Extractor) Spans(i int) ([]contentstream.TextSpan, error) {
	p, err := e.Page(i)
	if err != nil {
		return nil, err
	}
	return contentstream.ExtractSpans(e.src, e.fonts, p.Resources, p.Contents, i, e.sink)
}

// structTree parses /StructTreeRoot once; absence is cached too.
func (e *Extractor) structTree() *structure.Tree {
	if e.treeLoaded {
		return e.tree
	}
	e.treeLoaded = true
	tree, err := structure.Parse(e.src, e.catalog, e.sink)
	if err != nil {
		e.log.Warn("structure tree unusable", observability.Error("err", err))
		return nil
	}
	e.tree = tree
	return e.tree
}

// assembleGeometric orders spans by line bins top to bottom, left to
// right within a bin.
func assembleGeometric(spans []contentstream.TextSpan) string {
	type keyed struct {
		bin  int
		x    float64
		text string
	}
	rows := make([]keyed, 0, len(spans))
	for _, s := range spans {
		rows = append(rows, keyed{
			bin:  int(math.Round(s.BBox[1] / lineTolerance)),
			x:    s.BBox[0],
			text: s.Text,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].bin != rows[b].bin {
			return rows[a].bin > rows[b].bin // higher y first
		}
		return rows[a].x < rows[b].x
	})
	var sb strings.Builder
	lastBin := 0
	for i, r := range rows {
		if i > 0 {
			if r.bin != lastBin {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(r.text)
		lastBin = r.bin
	}
	return sb.String()
}

func (e *Extractor) pageIndexByObjNum(num int) (int, bool) {
	i, ok := e.pageByNum[num]
	return i, ok
}

func lookupIn(d *raw.Dict, key string) raw.Object {
	if d == nil {
		return raw.Null{}
	}
	return d.Lookup(key)
}
