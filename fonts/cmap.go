package fonts

import (
	"io"
	"sort"

	"github.com/Lulzx/zpdf/scanner"
)

// ToUnicodeCMap holds the pragmatic CMap subset the text path needs:
// bfchar and bfrange entries (scalar and array destinations) plus the
// code widths declared by codespacerange.
type ToUnicodeCMap struct {
	entries   map[string]string
	widths    []int // descending, for greedy longest-code matching
	onlyWidth int   // set when every code shares one width
	wmode     int
}

// lookup greedily matches the longest declared code width at the
// front of data. n is 0 when nothing matches.
func (m *ToUnicodeCMap) lookup(data []byte) (string, int) {
	for _, w := range m.widths {
		if len(data) < w {
			continue
		}
		if s, ok := m.entries[string(data[:w])]; ok {
			return s, w
		}
	}
	return "", 0
}

// ParseToUnicodeCMap tokenizes a decoded CMap stream. Unrecognized
// CMap machinery (usecmap, notdefrange, cid ranges) is skipped.
func ParseToUnicodeCMap(data []byte) *ToUnicodeCMap {
	m := &ToUnicodeCMap{entries: make(map[string]string)}
	widthSet := make(map[int]bool)
	sc := scanner.New(data, scanner.Config{})

	// CMap syntax is postfix; only the operands feeding the handled
	// operators are remembered
	var lastName string
	var lastInt int64
	for {
		tok, err := sc.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			break
		}
		switch tok.Type {
		case scanner.TokenName:
			lastName = tok.Str
		case scanner.TokenNumber:
			lastInt = tok.Int
		case scanner.TokenKeyword:
			switch tok.Str {
			case "def":
				if lastName == "WMode" {
					m.wmode = int(lastInt)
				}
			case "begincodespacerange":
				parseCodespace(sc, widthSet)
			case "beginbfchar":
				parseBFChar(sc, m, widthSet)
			case "beginbfrange":
				parseBFRange(sc, m, widthSet)
			}
		}
	}

	if len(widthSet) == 0 {
		for k := range m.entries {
			widthSet[len(k)] = true
		}
	}
	for w := range widthSet {
		m.widths = append(m.widths, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(m.widths)))
	if len(m.widths) == 1 {
		m.onlyWidth = m.widths[0]
	}
	return m
}

func parseCodespace(sc *scanner.Scanner, widthSet map[int]bool) {
	for {
		tok, err := sc.Next()
		if err != nil || (tok.Type == scanner.TokenKeyword && tok.Str == "endcodespacerange") {
			return
		}
		if tok.Type == scanner.TokenString && len(tok.Bytes) > 0 {
			widthSet[len(tok.Bytes)] = true
		}
	}
}

func parseBFChar(sc *scanner.Scanner, m *ToUnicodeCMap, widthSet map[int]bool) {
	var pending []byte
	for {
		tok, err := sc.Next()
		if err != nil || (tok.Type == scanner.TokenKeyword && tok.Str == "endbfchar") {
			return
		}
		if tok.Type != scanner.TokenString {
			continue
		}
		if pending == nil {
			pending = tok.Bytes
			continue
		}
		if len(pending) > 0 {
			m.entries[string(pending)] = decodeUTF16BE(tok.Bytes)
			widthSet[len(pending)] = true
		}
		pending = nil
	}
}

// parseBFRange handles both destination shapes: a scalar start value
// incremented across the range, or an array with one destination per
// code.
func parseBFRange(sc *scanner.Scanner, m *ToUnicodeCMap, widthSet map[int]bool) {
	var lo, hi []byte
	state := 0
	for {
		tok, err := sc.Next()
		if err != nil || (tok.Type == scanner.TokenKeyword && tok.Str == "endbfrange") {
			return
		}
		switch state {
		case 0:
			if tok.Type == scanner.TokenString {
				lo = tok.Bytes
				state = 1
			}
		case 1:
			if tok.Type == scanner.TokenString {
				hi = tok.Bytes
				state = 2
			}
		case 2:
			switch tok.Type {
			case scanner.TokenString:
				addScalarRange(m, widthSet, lo, hi, tok.Bytes)
				state = 0
			case scanner.TokenArray:
				addArrayRange(sc, m, widthSet, lo, hi)
				state = 0
			default:
				state = 0
			}
		}
	}
}

func addScalarRange(m *ToUnicodeCMap, widthSet map[int]bool, lo, hi, dst []byte) {
	width := len(lo)
	if width == 0 || len(hi) != width {
		return
	}
	start, end := bytesToInt(lo), bytesToInt(hi)
	if end < start || end-start > 0x10000 {
		return
	}
	widthSet[width] = true
	dstVal := bytesToInt(dst)
	for i := 0; i <= end-start; i++ {
		src := intToBytes(start+i, width)
		m.entries[string(src)] = decodeUTF16BE(intToBytes(dstVal+i, len(dst)))
	}
}

func addArrayRange(sc *scanner.Scanner, m *ToUnicodeCMap, widthSet map[int]bool, lo, hi []byte) {
	width := len(lo)
	start, end := bytesToInt(lo), bytesToInt(hi)
	if width > 0 && len(hi) == width && end >= start {
		widthSet[width] = true
	}
	i := 0
	for {
		tok, err := sc.Next()
		if err != nil || tok.Type == scanner.TokenArrayEnd {
			return
		}
		if tok.Type != scanner.TokenString {
			continue
		}
		if width > 0 && start+i <= end {
			src := intToBytes(start+i, width)
			m.entries[string(src)] = decodeUTF16BE(tok.Bytes)
		}
		i++
	}
}

func bytesToInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

func intToBytes(v, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
