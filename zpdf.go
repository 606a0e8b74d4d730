// Package zpdf extracts logically ordered UTF-8 text from PDF 1.x
// documents. A Document is an opaque handle over an immutable byte
// window; every operation is synchronous and a Document must not be
// shared across goroutines — open one per worker instead.
package zpdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/Lulzx/zpdf/contentstream"
	"github.com/Lulzx/zpdf/extractor"
	"github.com/Lulzx/zpdf/filters"
	"github.com/Lulzx/zpdf/observability"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/xref"
)

var (
	ErrInvalidPDF   = errors.New("invalid pdf")
	ErrClosed       = errors.New("document closed")
	ErrPageNotFound = extractor.ErrPageNotFound
)

// Re-exported record types of the capability surface.
type (
	TextSpan       = contentstream.TextSpan
	ImagePlacement = contentstream.ImagePlacement
	Metadata       = extractor.Metadata
	OutlineItem    = extractor.OutlineItem
	SearchResult   = extractor.SearchResult
	Link           = extractor.Link
	FormField      = extractor.FormField
)

// Document owns the byte window, the object cache, the flattened
// page list, the font caches, and the error sink. All returned
// buffers and slices are freshly allocated and caller-owned.
type Document struct {
	data      []byte
	borrowed  bool
	loader    *xref.Loader
	sink      *recovery.Sink
	ext       *extractor.Extractor
	log       observability.Logger
	version   string
	encrypted bool
	closed    bool
}

// Open reads the file at path into a private buffer and opens it.
func Open(path string) (*Document, error) {
	return OpenFile(path, DefaultConfig())
}

func OpenFile(path string, cfg Config) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return openBytes(data, false, cfg)
}

// OpenMemory copies data and opens the copy; the caller's slice may
// be reused afterwards.
func OpenMemory(data []byte) (*Document, error) {
	return OpenMemoryConfig(data, DefaultConfig())
}

func OpenMemoryConfig(data []byte, cfg Config) (*Document, error) {
	copied := make([]byte, len(data))
	copy(copied, data)
	return openBytes(copied, false, cfg)
}

// OpenMemoryBorrowed opens over the caller's bytes without copying.
// The slice must stay valid and unmodified until Close.
func OpenMemoryBorrowed(data []byte) (*Document, error) {
	return openBytes(data, true, DefaultConfig())
}

func openBytes(data []byte, borrowed bool, cfg Config) (*Document, error) {
	cfg = cfg.withDefaults()
	sink := recovery.NewSink(cfg.Policy)
	log := cfg.Logger

	version, ok := headerVersion(data)
	if !ok {
		if err := sink.Report(recovery.KindInvalidHeader, 0, "%PDF- header not found in first 1024 bytes"); err != nil {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidPDF)
		}
	}

	pipeline := filters.NewPipeline(filters.Limits{MaxDecompressedSize: cfg.MaxDecompressedSize})
	table, err := xref.Resolve(data, xref.ResolverConfig{Recovery: sink, Pipeline: pipeline})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	loader := xref.NewLoader(data, table, pipeline, sink)

	d := &Document{
		data:     data,
		borrowed: borrowed,
		loader:   loader,
		sink:     sink,
		log:      log,
		version:  version,
	}
	if _, hasEncrypt := table.Trailer().Get("Encrypt"); hasEncrypt {
		d.encrypted = true
		// not fatal: the document opens and the caller decides
		_ = sink.Report(recovery.KindEncrypted, 0, "trailer carries /Encrypt; extraction may be garbled")
	}

	ext, err := extractor.New(loader, table.Trailer(), sink, extractor.Options{
		CoverageRatio: cfg.StructuredCoverageRatio,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	d.ext = ext
	log.Debug("document open",
		observability.String("version", version),
		observability.Int("pages", ext.PageCount()),
		observability.Int("xref_entries", table.Len()))
	return d, nil
}

// headerVersion locates %PDF-d.d within the first KiB.
func headerVersion(data []byte) (string, bool) {
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return "", false
	}
	rest := window[idx+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return string(rest[:end]), true
}

// Close releases the handle. Owned windows drop their buffer;
// borrowed windows are left alone. Closing twice is a no-op.
func (d *Document) Close() {
	if d == nil || d.closed {
		return
	}
	d.closed = true
	d.data = nil
	d.loader = nil
	d.ext = nil
}

func (d *Document) ok() bool { return d != nil && !d.closed }

// Version reports the header version, e.g. "1.7".
func (d *Document) Version() string {
	if !d.ok() {
		return ""
	}
	return d.version
}

// PageCount returns the number of flattened page leaves, or -1 on a
// nil or closed handle.
func (d *Document) PageCount() int {
	if !d.ok() {
		return -1
	}
	return d.ext.PageCount()
}

// IsEncrypted reports whether any trailer carries /Encrypt.
func (d *Document) IsEncrypted() bool {
	return d.ok() && d.encrypted
}

// PageInfo returns media box extents in points and the page rotation.
func (d *Document) PageInfo(page int) (width, height float64, rotation int, err error) {
	if !d.ok() {
		return 0, 0, 0, ErrClosed
	}
	p, err := d.ext.Page(page)
	if err != nil {
		return 0, 0, 0, err
	}
	return p.Width(), p.Height(), p.Rotation, nil
}

// ExtractPage extracts one page in reading order.
func (d *Document) ExtractPage(page int) (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.PageText(page)
}

// ExtractPageFast extracts one page in content-stream order.
func (d *Document) ExtractPageFast(page int) (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.StreamText(page)
}

// ExtractAll extracts the document in accuracy mode, pages separated
// by form feed, no trailing newline.
func (d *Document) ExtractAll() (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.AllText(true)
}

// ExtractAllFast extracts the document in stream order.
func (d *Document) ExtractAllFast() (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.AllText(false)
}

// ReadingOrderPage is ExtractPage under its capability-surface name.
func (d *Document) ReadingOrderPage(page int) (string, error) {
	return d.ExtractPage(page)
}

// ReadingOrderAll is ExtractAll under its capability-surface name.
func (d *Document) ReadingOrderAll() (string, error) {
	return d.ExtractAll()
}

// ExtractBounds returns positioned spans for one page in PDF user
// space (origin lower-left, y up).
func (d *Document) ExtractBounds(page int) ([]TextSpan, error) {
	if !d.ok() {
		return nil, ErrClosed
	}
	return d.ext.Spans(page)
}

// ExtractMarkdown renders one page as markdown with heading
// inference.
func (d *Document) ExtractMarkdown(page int) (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.PageMarkdown(page)
}

// ExtractAllMarkdown renders the whole document as markdown.
func (d *Document) ExtractAllMarkdown() (string, error) {
	if !d.ok() {
		return "", ErrClosed
	}
	return d.ext.AllMarkdown()
}

// Metadata reads the trailer /Info fields.
func (d *Document) Metadata() Metadata {
	if !d.ok() {
		return Metadata{}
	}
	return d.ext.DocumentMetadata(d.loader.Trailer())
}

// Outline returns the bookmark tree flattened in document order.
func (d *Document) Outline() []OutlineItem {
	if !d.ok() {
		return nil
	}
	return d.ext.Outline()
}

// PageLabel formats the /PageLabels entry for one page.
func (d *Document) PageLabel(page int) string {
	if !d.ok() {
		return ""
	}
	return d.ext.PageLabel(page)
}

// Search finds query across all pages, ASCII case-insensitive.
func (d *Document) Search(query string) []SearchResult {
	if !d.ok() {
		return nil
	}
	return d.ext.Search(query)
}

// PageLinks lists link annotations on one page.
func (d *Document) PageLinks(page int) ([]Link, error) {
	if !d.ok() {
		return nil, ErrClosed
	}
	return d.ext.PageLinks(page)
}

// PageImages lists image placements on one page.
func (d *Document) PageImages(page int) ([]ImagePlacement, error) {
	if !d.ok() {
		return nil, ErrClosed
	}
	return d.ext.PageImages(page)
}

// FormFields lists terminal AcroForm fields.
func (d *Document) FormFields() []FormField {
	if !d.ok() {
		return nil
	}
	return d.ext.FormFields()
}

// Errors snapshots the error sink.
func (d *Document) Errors() []recovery.Record {
	if !d.ok() {
		return nil
	}
	return d.sink.Records()
}
