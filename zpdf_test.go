package zpdf

import (
	"bytes"
	"fmt"
	"sort"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfBuilder assembles a complete PDF in memory with exact xref
// offsets.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int64
}

func newPDF() *pdfBuilder {
	b := &pdfBuilder{offsets: make(map[int]int64)}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

func (b *pdfBuilder) obj(num int, body string) *pdfBuilder {
	b.offsets[num] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return b
}

func (b *pdfBuilder) streamObj(num int, dictBody, data string) *pdfBuilder {
	b.offsets[num] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		num, dictBody, len(data), data)
	return b
}

func (b *pdfBuilder) finish(trailerExtra string) []byte {
	start := int64(b.buf.Len())
	nums := make([]int, 0, len(b.offsets))
	maxNum := 0
	for n := range b.offsets {
		nums = append(nums, n)
		if n > maxNum {
			maxNum = n
		}
	}
	sort.Ints(nums)
	fmt.Fprintf(&b.buf, "xref\n0 1\n0000000000 65535 f \n")
	for _, n := range nums {
		fmt.Fprintf(&b.buf, "%d 1\n%010d 00000 n \n", n, b.offsets[n])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root 1 0 R %s >>\n", maxNum+1, trailerExtra)
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", start)
	return b.buf.Bytes()
}

// onePagePDF wires catalog, page tree, a WinAnsi font, and one
// content stream.
func onePagePDF(content string) []byte {
	return newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> >>").
		obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>").
		streamObj(4, "", content).
		obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>").
		finish("")
}

func TestMinimalTextDocument(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 100 700 Td (Test123) Tj ET"))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 1, doc.PageCount())
	assert.Equal(t, "1.4", doc.Version())
	assert.False(t, doc.IsEncrypted())

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "Test123", text)
}

func TestMultiPageFormFeedSeparator(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R 6 0 R 8 0 R] /Count 3 /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> >>").
		obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>").
		streamObj(4, "", "BT /F1 12 Tf 100 700 Td (PageA) Tj ET").
		obj(5, "<< /Type /Font /Subtype /Type1 /Encoding /WinAnsiEncoding >>").
		obj(6, "<< /Type /Page /Parent 2 0 R /Contents 7 0 R >>").
		streamObj(7, "", "BT /F1 12 Tf 100 700 Td (PageB) Tj ET").
		obj(8, "<< /Type /Page /Parent 2 0 R /Contents 9 0 R >>").
		streamObj(9, "", "BT /F1 12 Tf 100 700 Td (PageC) Tj ET")
	doc, err := OpenMemory(b.finish(""))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 3, doc.PageCount())
	all, err := doc.ExtractAll()
	require.NoError(t, err)
	assert.Equal(t, "PageA\x0cPageB\x0cPageC", all)

	fast, err := doc.ExtractAllFast()
	require.NoError(t, err)
	assert.Equal(t, all, fast)
}

// An incremental update redefines the content stream; the newest xref
// section must win.
func TestIncrementalUpdateOverrides(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> >>").
		obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>").
		streamObj(4, "", "BT /F1 12 Tf 100 700 Td (Original Text) Tj ET").
		obj(5, "<< /Type /Font /Subtype /Type1 /Encoding /WinAnsiEncoding >>")
	base := b.finish("")
	// the section keyword, not the "xref" inside "startxref"
	firstXRef := bytes.LastIndex(base, []byte("\nxref\n")) + 1

	var buf bytes.Buffer
	buf.Write(base)
	updated := "BT /F1 12 Tf 100 700 Td (Updated Text) Tj ET"
	objOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(updated), updated)
	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n4 1\n%010d 00000 n \n", objOffset)
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R /Prev %d >>\n", firstXRef)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	doc, err := OpenMemory(buf.Bytes())
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Contains(t, text, "Updated")
	assert.NotContains(t, text, "Original")
}

// A leaf without /Type /Page still contributes a page when it has
// /MediaBox and /Contents.
func TestPageLeafWithoutType(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /Resources << /Font << /F1 5 0 R >> >> >>").
		obj(3, "<< /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>").
		streamObj(4, "", "BT /F1 12 Tf 100 700 Td (typeless) Tj ET").
		obj(5, "<< /Type /Font /Subtype /Type1 /Encoding /WinAnsiEncoding >>")
	doc, err := OpenMemory(b.finish(""))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.PageCount())
	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "typeless", text)
}

func TestMetadataUTF16Title(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>").
		obj(3, "<< /Type /Page /Parent 2 0 R >>").
		obj(6, "<< /Title <FEFF00430061006600E9> /Author (Jo) >>")
	doc, err := OpenMemory(b.finish("/Info 6 0 R"))
	require.NoError(t, err)
	defer doc.Close()

	md := doc.Metadata()
	assert.Equal(t, "Caf\xC3\xA9", md.Title)
	assert.Equal(t, "Jo", md.Author)
}

func TestExtractionIsIdempotent(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 100 700 Td (stable) Tj ET"))
	require.NoError(t, err)
	defer doc.Close()

	first, err := doc.ExtractPage(0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := doc.ExtractPage(0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOutputIsValidUTF8(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 0 0 Td (caf\\351 \\223q\\224) Tj ET"))
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text), "output %q", text)
}

func TestPageInfo(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT ET"))
	require.NoError(t, err)
	defer doc.Close()

	w, h, rot, err := doc.PageInfo(0)
	require.NoError(t, err)
	assert.Equal(t, 612.0, w)
	assert.Equal(t, 792.0, h)
	assert.Equal(t, 0, rot)

	_, _, _, err = doc.PageInfo(42)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestPageOutOfRange(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT ET"))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.ExtractPage(9999)
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = doc.ExtractPage(-1)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestNilAndClosedHandles(t *testing.T) {
	var nilDoc *Document
	assert.Equal(t, -1, nilDoc.PageCount())
	assert.False(t, nilDoc.IsEncrypted())
	nilDoc.Close() // must not panic

	doc, err := OpenMemory(onePagePDF("BT ET"))
	require.NoError(t, err)
	doc.Close()
	doc.Close() // idempotent
	assert.Equal(t, -1, doc.PageCount())
	_, err = doc.ExtractPage(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEncryptedDetection(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [] /Count 0 /MediaBox [0 0 612 792] >>").
		obj(7, "<< /Filter /Standard /V 1 /R 2 >>")
	doc, err := OpenMemory(b.finish("/Encrypt 7 0 R"))
	require.NoError(t, err)
	defer doc.Close()

	assert.True(t, doc.IsEncrypted())
	records := doc.Errors()
	require.NotEmpty(t, records)
}

func TestOpenGarbageFails(t *testing.T) {
	_, err := OpenMemory([]byte("this is not a pdf at all"))
	assert.Error(t, err)
}

func TestOpenMemoryCopies(t *testing.T) {
	data := onePagePDF("BT /F1 12 Tf 0 0 Td (copy me) Tj ET")
	doc, err := OpenMemory(data)
	require.NoError(t, err)
	defer doc.Close()

	// clobber the caller's slice; the document must be unaffected
	for i := range data {
		data[i] = 0
	}
	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "copy me", text)
}

func TestOpenMemoryBorrowed(t *testing.T) {
	data := onePagePDF("BT /F1 12 Tf 0 0 Td (borrowed) Tj ET")
	doc, err := OpenMemoryBorrowed(data)
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "borrowed", text)
}

func TestExtractBoundsCoordinates(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 1 0 0 1 100 700 Tm (spanned) Tj ET"))
	require.NoError(t, err)
	defer doc.Close()

	spans, err := doc.ExtractBounds(0)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "spanned", spans[0].Text)
	assert.Equal(t, 100.0, spans[0].BBox[0])
	assert.Equal(t, 700.0, spans[0].BBox[1])
	assert.Equal(t, 12.0, spans[0].FontSize)
}

func TestTJSpacingEndToEnd(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 100 700 Td [(Hello) -200 (World)] TJ ET"))
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
}

// Under the default policy a dangling /Contents degrades to an empty
// page and is recorded, not fatal.
func TestMissingContentsDegrades(t *testing.T) {
	b := newPDF().
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>").
		obj(3, "<< /Type /Page /Parent 2 0 R /Contents 99 0 R >>")
	doc, err := OpenMemory(b.finish(""))
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.ExtractPage(0)
	require.NoError(t, err)
	assert.Equal(t, "", text)
	assert.NotEmpty(t, doc.Errors())
}

func TestSearchEndToEnd(t *testing.T) {
	doc, err := OpenMemory(onePagePDF("BT /F1 12 Tf 100 700 Td (Needle in a haystack) Tj ET"))
	require.NoError(t, err)
	defer doc.Close()

	hits := doc.Search("needle")
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Page)
	assert.Contains(t, hits[0].Context, "Needle")
	assert.Empty(t, doc.Search(""))
}
