// Package fonts builds per-font code→Unicode maps: single-byte base
// encodings with /Differences, ToUnicode CMaps, and Identity-H CIDs.
package fonts

import (
	"strings"
	"unicode/utf16"

	"github.com/Lulzx/zpdf/raw"
)

// Source is what encoding construction needs from the document: lazy
// resolution plus decoded stream payloads.
type Source interface {
	raw.Getter
	DecodedStream(obj raw.Object) ([]byte, *raw.Dict, error)
}

// Encoding maps show-string bytes to UTF-8 text. Exactly one of
// Simple and the CMap is authoritative; a present ToUnicode CMap
// overrides the base encoding.
type Encoding struct {
	WMode  int
	IsCID  bool       // codes are two-byte big-endian
	Simple *[256]rune // single-byte map; 0 marks unmapped
	cmap   *ToUnicodeCMap

	// Widths holds the unparsed /W array of a composite font. The
	// text path never reads it; it exists for callers that add
	// glyph-width-driven geometry later.
	Widths raw.Object
}

// Decode converts one show-string to UTF-8.
func (e *Encoding) Decode(data []byte) string {
	if e == nil {
		return string(data)
	}
	var sb strings.Builder
	for len(data) > 0 {
		if e.cmap != nil {
			if s, n := e.cmap.lookup(data); n > 0 {
				sb.WriteString(s)
				data = data[n:]
				continue
			}
		}
		if e.IsCID {
			if len(data) >= 2 {
				code := rune(uint16(data[0])<<8 | uint16(data[1]))
				if code != 0 {
					sb.WriteRune(code)
				}
				data = data[2:]
				continue
			}
			// dangling odd byte of a two-byte font
			data = data[1:]
			continue
		}
		b := data[0]
		data = data[1:]
		r := rune(b)
		if e.Simple != nil {
			if m := e.Simple[b]; m != 0 {
				r = m
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// GlyphCount reports how many glyphs data shows: two-byte code units
// for CID fonts and for fonts whose ToUnicode CMap declares only
// two-byte codes, bytes otherwise. Bounds-mode advances scale off this.
func (e *Encoding) GlyphCount(data []byte) int {
	if e != nil && (e.IsCID || (e.cmap != nil && e.cmap.onlyWidth == 2)) {
		return (len(data) + 1) / 2
	}
	return len(data)
}

// Build constructs the encoding for one font dictionary, in priority:
// ToUnicode CMap, Identity CID mapping, then base encoding with
// /Differences.
func Build(src Source, fontDict *raw.Dict) *Encoding {
	enc := &Encoding{}
	subtype, _ := raw.DictName(src, fontDict, "Subtype")

	if tu := fontDict.Lookup("ToUnicode"); tu.Kind() != raw.KindNull {
		if data, _, err := src.DecodedStream(tu); err == nil && len(data) > 0 {
			enc.cmap = ParseToUnicodeCMap(data)
		}
	}

	if subtype == "Type0" {
		enc.IsCID = true
		switch v := raw.Deref(src, fontDict.Lookup("Encoding")).(type) {
		case raw.Name:
			if v.V == "Identity-V" || strings.HasSuffix(v.V, "-V") {
				enc.WMode = 1
			}
		case *raw.Stream:
			if w, ok := raw.DictInt(src, v.Dict, "WMode"); ok {
				enc.WMode = int(w)
			}
		}
		if enc.cmap != nil && enc.cmap.wmode != 0 {
			enc.WMode = enc.cmap.wmode
		}
		enc.Widths = descendantWidths(src, fontDict)
		return enc
	}

	table := baseTable(src, fontDict)
	applyDifferences(src, fontDict, &table)
	enc.Simple = &table
	return enc
}

// baseTable picks the single-byte starting point: the named
// /Encoding (or nested /BaseEncoding), a symbolic builtin keyed off
// the base font name, or StandardEncoding.
func baseTable(src Source, fontDict *raw.Dict) [256]rune {
	name := ""
	switch v := raw.Deref(src, fontDict.Lookup("Encoding")).(type) {
	case raw.Name:
		name = v.V
	case *raw.Dict:
		name, _ = raw.DictName(src, v, "BaseEncoding")
	}
	switch name {
	case "WinAnsiEncoding":
		return winAnsiEncoding
	case "MacRomanEncoding":
		return macRomanEncoding
	case "MacExpertEncoding":
		// No full expert table in the text path; Standard covers the
		// overlapping letter positions.
		return standardEncoding
	case "StandardEncoding":
		return standardEncoding
	}
	base, _ := raw.DictName(src, fontDict, "BaseFont")
	switch {
	case strings.Contains(base, "Symbol"):
		return symbolEncoding
	case strings.Contains(base, "ZapfDingbats"), strings.Contains(base, "Dingbats"):
		return zapfDingbatsEncoding
	}
	return standardEncoding
}

// applyDifferences folds the /Differences array into table: an
// integer resets the code counter, a name maps the next code.
func applyDifferences(src Source, fontDict *raw.Dict, table *[256]rune) {
	encDict, ok := raw.Deref(src, fontDict.Lookup("Encoding")).(*raw.Dict)
	if !ok {
		return
	}
	diff := raw.DerefArray(src, encDict.Lookup("Differences"))
	if diff == nil {
		return
	}
	code := 0
	for _, item := range diff.Items {
		switch v := raw.Deref(src, item).(type) {
		case raw.Integer:
			code = int(v.V)
		case raw.Name:
			if code >= 0 && code < 256 {
				if r, ok := MapGlyphName(v.V); ok {
					table[code] = r
				}
			}
			code++
		}
	}
}

// descendantWidths locates the /W array of the first descendant font
// without parsing it.
func descendantWidths(src Source, fontDict *raw.Dict) raw.Object {
	desc := raw.DerefArray(src, fontDict.Lookup("DescendantFonts"))
	if desc == nil || desc.Len() == 0 {
		return nil
	}
	d := raw.DerefDict(src, desc.At(0))
	if d == nil {
		return nil
	}
	if w, ok := d.Get("W"); ok {
		return w
	}
	return nil
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return ""
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return string(utf16.Decode(units))
}
