// Package contentstream interprets page content: a postfix operator
// stream driving text emission. One state machine serves the stream,
// bounds, structured, and image output modes; only the attached
// handler differs.
package contentstream

import (
	"errors"
	"io"
	"math"

	"github.com/Lulzx/zpdf/fonts"
	"github.com/Lulzx/zpdf/parser"
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/scanner"
)

// Source is the document view the interpreter needs.
type Source interface {
	raw.Getter
	DecodedStream(obj raw.Object) ([]byte, *raw.Dict, error)
}

const (
	maxOperands = 128
	maxDoDepth  = 10
	// glyph advance estimate in ems; CID width arrays exist but the
	// text path does not consult them
	glyphAdvanceEm = 0.5
	// line-break displacement factor over the larger of the active
	// and last-shown font sizes
	breakFactor = 0.7
)

const mcidSentinel = -1

type mcEntry struct {
	tag  string
	mcid int
}

// Interpreter holds the shared operator-machine state.
type Interpreter struct {
	src   Source
	fonts *fonts.Cache
	sink  *recovery.Sink
	h     handler

	resources *raw.Dict
	fontView  map[string]*fonts.Encoding

	ctm     Matrix
	gsStack []Matrix

	tm, tlm      Matrix
	leading      float64
	charSpacing  float64
	wordSpacing  float64
	hscale       float64
	fontSize     float64
	enc          *fonts.Encoding
	lastShowSize float64
	baseline     bool

	mcStack []mcEntry
	depth   int
}

// handler receives the mode-specific events. Implementations embed
// baseHandler and override what they consume.
type handler interface {
	show(it *Interpreter, text string, glyphs int)
	newline(it *Interpreter)
	adjust(it *Interpreter, n float64)
	flushSpan(it *Interpreter)
	imageDo(it *Interpreter, dict *raw.Dict)
	inlineImage(it *Interpreter, operands []raw.Object)
}

type baseHandler struct{}

func (baseHandler) show(*Interpreter, string, int)         {}
func (baseHandler) newline(*Interpreter)                   {}
func (baseHandler) adjust(*Interpreter, float64)           {}
func (baseHandler) flushSpan(*Interpreter)                 {}
func (baseHandler) imageDo(*Interpreter, *raw.Dict)        {}
func (baseHandler) inlineImage(*Interpreter, []raw.Object) {}

// run interprets one page's content with the given handler attached.
func run(src Source, fc *fonts.Cache, resources *raw.Dict, contents raw.Object, pageIndex int, h handler, sink *recovery.Sink) error {
	it := &Interpreter{
		src:       src,
		fonts:     fc,
		sink:      sink,
		h:         h,
		resources: resources,
		ctm:       Identity(),
		tm:        Identity(),
		tlm:       Identity(),
		hscale:    1,
	}
	if fc != nil {
		it.fontView = fc.PageFonts(pageIndex, resources)
	}
	data, err := collectContent(src, contents)
	if err != nil {
		return err
	}
	if err := it.exec(data); err != nil {
		return err
	}
	it.h.flushSpan(it)
	return nil
}

// collectContent concatenates the page's content streams; operators
// may straddle stream boundaries, so the streams form one token
// sequence.
func collectContent(src Source, contents raw.Object) ([]byte, error) {
	switch v := raw.Deref(src, orNull(contents)).(type) {
	case *raw.Stream:
		data, _, err := src.DecodedStream(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	case *raw.Array:
		var out []byte
		for _, item := range v.Items {
			st := raw.DerefStream(src, item)
			if st == nil {
				continue
			}
			data, _, err := src.DecodedStream(st)
			if err != nil {
				continue
			}
			if len(out) > 0 {
				out = append(out, '\n')
			}
			out = append(out, data...)
		}
		return out, nil
	}
	return nil, nil
}

func orNull(obj raw.Object) raw.Object {
	if obj == nil {
		return raw.Null{}
	}
	return obj
}

func (it *Interpreter) exec(data []byte) error {
	sc := scanner.New(data, scanner.Config{Recovery: it.sink})
	rd := parser.NewReader(sc, it.sink)
	operands := make([]raw.Object, 0, maxOperands)
	for {
		tok, err := rd.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if rerr := it.report(recovery.KindSyntaxError, tok.Pos, err.Error()); rerr != nil {
				return rerr
			}
			return nil
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			if err := it.op(tok.Str, operands); err != nil {
				return err
			}
			operands = operands[:0]
		case scanner.TokenInlineImage:
			it.h.inlineImage(it, operands)
			operands = operands[:0]
		default:
			rd.Unread(tok)
			obj, err := rd.ParseObject()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				if rerr := it.report(recovery.KindSyntaxError, tok.Pos, err.Error()); rerr != nil {
					return rerr
				}
				operands = operands[:0]
				continue
			}
			if len(operands) >= maxOperands {
				if rerr := it.report(recovery.KindSyntaxError, tok.Pos, "operand buffer overflow"); rerr != nil {
					return rerr
				}
				copy(operands, operands[1:])
				operands = operands[:len(operands)-1]
			}
			operands = append(operands, obj)
		}
	}
}

func (it *Interpreter) op(name string, operands []raw.Object) error {
	switch name {
	case "BT":
		it.tm = Identity()
		it.tlm = Identity()
	case "ET":
		it.h.flushSpan(it)
	case "Tf":
		if len(operands) >= 2 {
			if size, ok := raw.AsFloat(operands[len(operands)-1]); ok {
				it.fontSize = size
			}
			if n, ok := raw.AsName(operands[len(operands)-2]); ok {
				it.enc = it.fontView[n]
			}
		}
	case "Td":
		tx, ty := twoFloats(operands)
		it.moveLine(tx, ty)
	case "TD":
		tx, ty := twoFloats(operands)
		it.leading = -ty
		it.moveLine(tx, ty)
	case "Tm":
		if len(operands) >= 6 {
			var m Matrix
			ok := true
			for i := 0; i < 6; i++ {
				v, got := raw.AsFloat(operands[len(operands)-6+i])
				if !got {
					ok = false
					break
				}
				m[i] = v
			}
			if ok {
				it.setMatrix(m)
			}
		}
	case "T*":
		it.nextLine()
	case "TL":
		if v, ok := lastFloat(operands); ok {
			it.leading = v
		}
	case "Tc":
		if v, ok := lastFloat(operands); ok {
			it.charSpacing = v
		}
	case "Tw":
		if v, ok := lastFloat(operands); ok {
			it.wordSpacing = v
		}
	case "Tz":
		if v, ok := lastFloat(operands); ok {
			it.hscale = v / 100
		}
	case "Tj":
		if len(operands) >= 1 {
			it.showString(operands[len(operands)-1])
		}
	case "'":
		it.nextLine()
		if len(operands) >= 1 {
			it.showString(operands[len(operands)-1])
		}
	case "\"":
		if len(operands) >= 3 {
			if v, ok := raw.AsFloat(operands[len(operands)-3]); ok {
				it.wordSpacing = v
			}
			if v, ok := raw.AsFloat(operands[len(operands)-2]); ok {
				it.charSpacing = v
			}
			it.nextLine()
			it.showString(operands[len(operands)-1])
		}
	case "TJ":
		if len(operands) >= 1 {
			if arr, ok := operands[len(operands)-1].(*raw.Array); ok {
				it.showArray(arr)
			}
		}
	case "cm":
		if len(operands) >= 6 {
			var m Matrix
			for i := 0; i < 6; i++ {
				m[i], _ = raw.AsFloat(operands[len(operands)-6+i])
			}
			it.ctm = m.Mul(it.ctm)
		}
	case "q":
		it.gsStack = append(it.gsStack, it.ctm)
	case "Q":
		if n := len(it.gsStack); n > 0 {
			it.ctm = it.gsStack[n-1]
			it.gsStack = it.gsStack[:n-1]
		}
	case "Do":
		if len(operands) >= 1 {
			if n, ok := raw.AsName(operands[len(operands)-1]); ok {
				return it.doXObject(n)
			}
		}
	case "BMC":
		tag := ""
		if len(operands) >= 1 {
			tag, _ = raw.AsName(operands[len(operands)-1])
		}
		it.mcStack = append(it.mcStack, mcEntry{tag: tag, mcid: mcidSentinel})
	case "BDC":
		it.beginMarked(operands)
	case "EMC":
		if n := len(it.mcStack); n > 0 {
			it.mcStack = it.mcStack[:n-1]
		}
	}
	return nil
}

// moveLine translates the line matrix and evaluates the line-break
// predicate: the shift along the writing-mode axis against 0.7x the
// larger of the active and last-shown font sizes.
func (it *Interpreter) moveLine(tx, ty float64) {
	disp := ty
	if it.wmode() == 1 {
		disp = tx
	}
	if it.baseline && math.Abs(disp) > it.breakThreshold() {
		it.h.newline(it)
	}
	if it.baseline && hypot(tx, ty) > glyphAdvanceEm*it.fontSize {
		it.h.flushSpan(it)
	}
	it.tlm = Translation(tx, ty).Mul(it.tlm)
	it.tm = it.tlm
}

// setMatrix replaces the text matrices, comparing absolute positions
// for the break predicate.
func (it *Interpreter) setMatrix(m Matrix) {
	disp := m[5] - it.tlm[5]
	if it.wmode() == 1 {
		disp = m[4] - it.tlm[4]
	}
	if it.baseline && math.Abs(disp) > it.breakThreshold() {
		it.h.newline(it)
	}
	if it.baseline && hypot(m[4]-it.tm[4], m[5]-it.tm[5]) > glyphAdvanceEm*it.fontSize {
		it.h.flushSpan(it)
	}
	it.tlm = m
	it.tm = m
}

func (it *Interpreter) nextLine() {
	it.tlm = Translation(0, -it.leading).Mul(it.tlm)
	it.tm = it.tlm
	it.h.newline(it)
}

func (it *Interpreter) breakThreshold() float64 {
	m := it.fontSize
	if it.lastShowSize > m {
		m = it.lastShowSize
	}
	return breakFactor * m
}

func (it *Interpreter) wmode() int {
	if it.enc != nil {
		return it.enc.WMode
	}
	return 0
}

func (it *Interpreter) showString(obj raw.Object) {
	data, ok := raw.AsString(obj)
	if !ok || len(data) == 0 {
		return
	}
	text := it.enc.Decode(data)
	glyphs := it.enc.GlyphCount(data)
	it.h.show(it, text, glyphs)
	adv := float64(glyphs) * glyphAdvanceEm * it.fontSize * it.hscale
	if it.wmode() == 1 {
		it.tm = Translation(0, -adv).Mul(it.tm)
	} else {
		it.tm = Translation(adv, 0).Mul(it.tm)
	}
	it.lastShowSize = it.fontSize
	it.baseline = true
}

func (it *Interpreter) showArray(arr *raw.Array) {
	for _, item := range arr.Items {
		if n, ok := raw.AsFloat(item); ok {
			adv := -n / 1000 * it.fontSize * it.hscale
			if it.wmode() == 1 {
				it.tm = Translation(0, -adv).Mul(it.tm)
			} else {
				it.tm = Translation(adv, 0).Mul(it.tm)
			}
			it.h.adjust(it, n)
			continue
		}
		it.showString(item)
	}
}

// doXObject recurses into Form XObjects and reports image placements.
func (it *Interpreter) doXObject(name string) error {
	xobjs := raw.DerefDict(it.src, lookupIn(it.resources, "XObject"))
	if xobjs == nil {
		return nil
	}
	st := raw.DerefStream(it.src, xobjs.Lookup(name))
	if st == nil {
		return nil
	}
	subtype, _ := raw.DictName(it.src, st.Dict, "Subtype")
	switch subtype {
	case "Image":
		it.h.imageDo(it, st.Dict)
		return nil
	case "Form":
	default:
		return nil
	}
	if it.depth >= maxDoDepth {
		if rerr := it.report(recovery.KindSyntaxError, st.RawOffset, "form recursion deeper than 10"); rerr != nil {
			return rerr
		}
		return nil
	}
	data, _, err := it.src.DecodedStream(st)
	if err != nil {
		return nil
	}

	savedRes, savedView := it.resources, it.fontView
	savedCTM, savedTm, savedTlm := it.ctm, it.tm, it.tlm
	savedStack := len(it.gsStack)

	if res := raw.DerefDict(it.src, st.Dict.Lookup("Resources")); res != nil {
		it.resources = res
		if it.fonts != nil {
			it.fontView = it.fonts.ResourceFonts(res)
		}
	}
	if fm, ok := matrixFrom(it.src, st.Dict.Lookup("Matrix")); ok {
		it.ctm = fm.Mul(it.ctm)
	}

	it.depth++
	err = it.exec(data)
	it.depth--

	it.resources, it.fontView = savedRes, savedView
	it.ctm, it.tm, it.tlm = savedCTM, savedTm, savedTlm
	it.gsStack = it.gsStack[:savedStack]
	return err
}

// beginMarked pushes a (tag, MCID) pair; the MCID comes from the
// properties dict inline or via /Resources /Properties.
func (it *Interpreter) beginMarked(operands []raw.Object) {
	entry := mcEntry{mcid: mcidSentinel}
	if len(operands) >= 2 {
		entry.tag, _ = raw.AsName(operands[len(operands)-2])
	}
	if len(operands) >= 1 {
		var props *raw.Dict
		switch v := operands[len(operands)-1].(type) {
		case *raw.Dict:
			props = v
		case raw.Name:
			if propRes := raw.DerefDict(it.src, lookupIn(it.resources, "Properties")); propRes != nil {
				props = raw.DerefDict(it.src, propRes.Lookup(v.V))
			}
		}
		if props != nil {
			if mcid, ok := raw.DictInt(it.src, props, "MCID"); ok {
				entry.mcid = int(mcid)
			}
		}
	}
	it.mcStack = append(it.mcStack, entry)
}

// currentMCID returns the innermost non-sentinel MCID, or the
// sentinel when none is open.
func (it *Interpreter) currentMCID() int {
	for i := len(it.mcStack) - 1; i >= 0; i-- {
		if it.mcStack[i].mcid != mcidSentinel {
			return it.mcStack[i].mcid
		}
	}
	return mcidSentinel
}

// devicePos is the current text origin in user space.
func (it *Interpreter) devicePos() (float64, float64) {
	return it.tm.Mul(it.ctm).Apply(0, 0)
}

func (it *Interpreter) report(kind recovery.Kind, offset int64, msg string) error {
	if it.sink == nil {
		return nil
	}
	return it.sink.Report(kind, offset, msg)
}

func lookupIn(d *raw.Dict, key string) raw.Object {
	if d == nil {
		return raw.Null{}
	}
	return d.Lookup(key)
}

func matrixFrom(g raw.Getter, obj raw.Object) (Matrix, bool) {
	arr := raw.DerefArray(g, obj)
	if arr == nil || arr.Len() < 6 {
		return Identity(), false
	}
	var m Matrix
	for i := 0; i < 6; i++ {
		v, ok := raw.AsFloat(raw.Deref(g, arr.At(i)))
		if !ok {
			return Identity(), false
		}
		m[i] = v
	}
	return m, true
}

func twoFloats(operands []raw.Object) (float64, float64) {
	var tx, ty float64
	if len(operands) >= 2 {
		tx, _ = raw.AsFloat(operands[len(operands)-2])
		ty, _ = raw.AsFloat(operands[len(operands)-1])
	}
	return tx, ty
}

func lastFloat(operands []raw.Object) (float64, bool) {
	if len(operands) == 0 {
		return 0, false
	}
	return raw.AsFloat(operands[len(operands)-1])
}
