package contentstream

import (
	"bytes"
	"strings"

	"github.com/Lulzx/zpdf/fonts"
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
)

// TextSpan is one positioned run of text in PDF user space. The box
// is a glyph-run extent, not glyph-tight.
type TextSpan struct {
	BBox     [4]float64
	Text     string
	FontSize float64
}

// ImagePlacement is an image XObject (or inline image) placed on a
// page: the unit square through the CTM plus the declared pixel size.
type ImagePlacement struct {
	Rect   [4]float64
	Width  int
	Height int
}

// spacing thresholds for TJ adjustments (thousandths of an em)
const (
	tjSpaceThreshold = -100 // stream and structured modes insert a space
	tjFlushThreshold = -150 // bounds mode flushes the open span
)

// ExtractText runs the interpreter in stream mode: decoded UTF-8
// straight to a buffer.
func ExtractText(src Source, fc *fonts.Cache, resources *raw.Dict, contents raw.Object, pageIndex int, sink *recovery.Sink) (string, error) {
	h := &streamHandler{}
	if err := run(src, fc, resources, contents, pageIndex, h, sink); err != nil {
		return "", err
	}
	return strings.TrimSpace(h.buf.String()), nil
}

// ExtractSpans runs the interpreter in bounds mode.
func ExtractSpans(src Source, fc *fonts.Cache, resources *raw.Dict, contents raw.Object, pageIndex int, sink *recovery.Sink) ([]TextSpan, error) {
	h := &boundsHandler{}
	if err := run(src, fc, resources, contents, pageIndex, h, sink); err != nil {
		return nil, err
	}
	return h.spans, nil
}

// ExtractByMCID runs the interpreter in structured mode: text routed
// to per-MCID buffers keyed by the innermost open MCID.
func ExtractByMCID(src Source, fc *fonts.Cache, resources *raw.Dict, contents raw.Object, pageIndex int, sink *recovery.Sink) (map[int]string, error) {
	h := &structuredHandler{bufs: make(map[int]*bytes.Buffer)}
	if err := run(src, fc, resources, contents, pageIndex, h, sink); err != nil {
		return nil, err
	}
	out := make(map[int]string, len(h.bufs))
	for mcid, buf := range h.bufs {
		out[mcid] = strings.TrimSpace(buf.String())
	}
	return out, nil
}

// ExtractImages runs the interpreter in image mode, collecting
// placements without touching any pixel data.
func ExtractImages(src Source, resources *raw.Dict, contents raw.Object, sink *recovery.Sink) ([]ImagePlacement, error) {
	h := &imagesHandler{src: src}
	if err := run(src, nil, resources, contents, 0, h, sink); err != nil {
		return nil, err
	}
	return h.images, nil
}

// streamHandler appends decoded text with newline and space folding.
type streamHandler struct {
	baseHandler
	buf bytes.Buffer
}

func (h *streamHandler) show(it *Interpreter, text string, glyphs int) {
	h.buf.WriteString(text)
}

func (h *streamHandler) newline(it *Interpreter) {
	if n := h.buf.Len(); n > 0 && h.buf.Bytes()[n-1] != '\n' {
		h.buf.WriteByte('\n')
	}
}

func (h *streamHandler) adjust(it *Interpreter, n float64) {
	if n >= tjSpaceThreshold {
		return
	}
	if l := h.buf.Len(); l > 0 {
		last := h.buf.Bytes()[l-1]
		if last == ' ' || last == '\n' {
			return
		}
	}
	h.buf.WriteByte(' ')
}

// boundsHandler accumulates TextSpan records. A span opens at the
// first show and closes on newline, large origin moves, deep TJ
// kerns, and ET.
type boundsHandler struct {
	baseHandler
	spans []TextSpan
	open  bool
	x0    float64
	y0    float64
	size  float64
	text  strings.Builder
}

func (h *boundsHandler) show(it *Interpreter, text string, glyphs int) {
	if !h.open {
		h.x0, h.y0 = it.devicePos()
		h.size = it.fontSize
		h.open = true
	}
	h.text.WriteString(text)
}

func (h *boundsHandler) newline(it *Interpreter) { h.flushSpan(it) }

func (h *boundsHandler) adjust(it *Interpreter, n float64) {
	if n < tjFlushThreshold {
		h.flushSpan(it)
	}
}

func (h *boundsHandler) flushSpan(it *Interpreter) {
	if !h.open {
		return
	}
	x1, _ := it.devicePos()
	if x1 < h.x0 {
		x1 = h.x0
	}
	span := TextSpan{
		BBox:     [4]float64{h.x0, h.y0, x1, h.y0 + h.size},
		Text:     h.text.String(),
		FontSize: h.size,
	}
	if span.Text != "" {
		h.spans = append(h.spans, span)
	}
	h.text.Reset()
	h.open = false
}

// structuredHandler routes text to fixed-size per-MCID buffers;
// overflow truncates silently.
type structuredHandler struct {
	baseHandler
	bufs map[int]*bytes.Buffer
}

const mcidBufferCap = 4096

func (h *structuredHandler) bufFor(it *Interpreter) *bytes.Buffer {
	mcid := it.currentMCID()
	buf, ok := h.bufs[mcid]
	if !ok {
		buf = &bytes.Buffer{}
		h.bufs[mcid] = buf
	}
	return buf
}

func (h *structuredHandler) show(it *Interpreter, text string, glyphs int) {
	buf := h.bufFor(it)
	room := mcidBufferCap - buf.Len()
	if room <= 0 {
		return
	}
	if len(text) > room {
		text = text[:room]
	}
	buf.WriteString(text)
}

func (h *structuredHandler) newline(it *Interpreter) {
	buf := h.bufFor(it)
	if n := buf.Len(); n > 0 && n < mcidBufferCap && buf.Bytes()[n-1] != '\n' {
		buf.WriteByte('\n')
	}
}

func (h *structuredHandler) adjust(it *Interpreter, n float64) {
	if n >= tjSpaceThreshold {
		return
	}
	buf := h.bufFor(it)
	if l := buf.Len(); l > 0 && l < mcidBufferCap {
		last := buf.Bytes()[l-1]
		if last != ' ' && last != '\n' {
			buf.WriteByte(' ')
		}
	}
}

// imagesHandler records placements for Do-image and inline images.
type imagesHandler struct {
	baseHandler
	src    Source
	images []ImagePlacement
}

func (h *imagesHandler) imageDo(it *Interpreter, dict *raw.Dict) {
	p := ImagePlacement{Rect: unitSquare(it.ctm)}
	if w, ok := raw.DictInt(h.src, dict, "Width"); ok {
		p.Width = int(w)
	}
	if ht, ok := raw.DictInt(h.src, dict, "Height"); ok {
		p.Height = int(ht)
	}
	h.images = append(h.images, p)
}

// inlineImage reads /W /H (or spelled-out keys) from the operand
// pairs buffered between BI and ID.
func (h *imagesHandler) inlineImage(it *Interpreter, operands []raw.Object) {
	p := ImagePlacement{Rect: unitSquare(it.ctm)}
	for i := 0; i+1 < len(operands); i += 2 {
		key, ok := raw.AsName(operands[i])
		if !ok {
			continue
		}
		val, ok := raw.AsInt(operands[i+1])
		if !ok {
			continue
		}
		switch key {
		case "W", "Width":
			p.Width = int(val)
		case "H", "Height":
			p.Height = int(val)
		}
	}
	h.images = append(h.images, p)
}

// unitSquare maps the image unit square through the CTM and returns
// the covering rectangle.
func unitSquare(ctm Matrix) [4]float64 {
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := ctm.Apply(c[0], c[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return [4]float64{minOf(xs), minOf(ys), maxOf(xs), maxOf(ys)}
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
