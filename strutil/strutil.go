// Package strutil decodes PDF text strings: BOM-prefixed UTF-16BE or
// PDFDocEncoding, both to UTF-8.
package strutil

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	utf16be = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	utf16le = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
)

// pdfDocDelta covers the PDFDocEncoding positions that differ from
// Latin-1: 0x18..0x1F and 0x80..0x9F.
var pdfDocDelta = map[byte]rune{
	0x18: 0x02D8, 0x19: 0x02C7, 0x1A: 0x02C6, 0x1B: 0x02D9,
	0x1C: 0x02DD, 0x1D: 0x02DB, 0x1E: 0x02DA, 0x1F: 0x02DC,
	0x80: 0x2022, 0x81: 0x2020, 0x82: 0x2021, 0x83: 0x2026,
	0x84: 0x2014, 0x85: 0x2013, 0x86: 0x0192, 0x87: 0x2044,
	0x88: 0x2039, 0x89: 0x203A, 0x8A: 0x2212, 0x8B: 0x2030,
	0x8C: 0x201E, 0x8D: 0x201C, 0x8E: 0x201D, 0x8F: 0x2018,
	0x90: 0x2019, 0x91: 0x201A, 0x92: 0x2122, 0x93: 0xFB01,
	0x94: 0xFB02, 0x95: 0x0141, 0x96: 0x0152, 0x97: 0x0160,
	0x98: 0x0178, 0x99: 0x017D, 0x9A: 0x0131, 0x9B: 0x0142,
	0x9C: 0x0153, 0x9D: 0x0161, 0x9E: 0x017E, 0x9F: 0xFFFD,
}

// DecodeTextString converts a PDF text string payload to UTF-8.
func DecodeTextString(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		if out, err := utf16be.Bytes(data); err == nil {
			return string(out)
		}
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		if out, err := utf16le.Bytes(data); err == nil {
			return string(out)
		}
	}
	if isASCII(data) {
		return string(data)
	}
	var sb strings.Builder
	for _, b := range data {
		if r, ok := pdfDocDelta[b]; ok {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

func isASCII(data []byte) bool {
	return bytes.IndexFunc(data, func(r rune) bool { return r >= 0x80 }) < 0
}
