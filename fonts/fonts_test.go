package fonts

import (
	"testing"

	"github.com/Lulzx/zpdf/raw"
)

type fakeSource map[int]raw.Object

func (s fakeSource) Get(ref raw.ObjectRef) (raw.Object, error) {
	if obj, ok := s[ref.Num]; ok {
		return obj, nil
	}
	return raw.Null{}, nil
}

func (s fakeSource) DecodedStream(obj raw.Object) ([]byte, *raw.Dict, error) {
	st := raw.DerefStream(s, obj)
	if st == nil {
		return nil, nil, nil
	}
	return st.Data, st.Dict, nil
}

func dict(pairs ...interface{}) *raw.Dict {
	d := raw.NewDict()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(raw.Object))
	}
	return d
}

func TestWinAnsiDecoding(t *testing.T) {
	src := fakeSource{}
	enc := Build(src, dict(
		"Subtype", raw.Name{V: "Type1"},
		"Encoding", raw.Name{V: "WinAnsiEncoding"},
	))
	if got := enc.Decode([]byte("Hello")); got != "Hello" {
		t.Fatalf("got %q", got)
	}
	// 0xE9 is eacute in WinAnsi
	if got := enc.Decode([]byte{0xE9}); got != "é" {
		t.Fatalf("got %q", got)
	}
	// 0x93/0x94 are curly quotes in Windows-1252
	if got := enc.Decode([]byte{0x93, 0x94}); got != "“”" {
		t.Fatalf("got %q", got)
	}
}

func TestMacRomanDecoding(t *testing.T) {
	enc := Build(fakeSource{}, dict(
		"Subtype", raw.Name{V: "Type1"},
		"Encoding", raw.Name{V: "MacRomanEncoding"},
	))
	// 0x8E is eacute in MacRoman
	if got := enc.Decode([]byte{0x8E}); got != "é" {
		t.Fatalf("got %q", got)
	}
}

func TestDifferencesOverride(t *testing.T) {
	enc := Build(fakeSource{}, dict(
		"Subtype", raw.Name{V: "Type1"},
		"Encoding", dict(
			"BaseEncoding", raw.Name{V: "WinAnsiEncoding"},
			"Differences", &raw.Array{Items: []raw.Object{
				raw.Integer{V: 65},
				raw.Name{V: "bullet"},
				raw.Name{V: "emdash"},
				raw.Integer{V: 97},
				raw.Name{V: "uni0041"},
			}},
		),
	))
	if got := enc.Decode([]byte{65, 66}); got != "•—" {
		t.Fatalf("got %q", got)
	}
	if got := enc.Decode([]byte{97}); got != "A" {
		t.Fatalf("uniXXXX: got %q", got)
	}
}

func TestSymbolFallbackByBaseFont(t *testing.T) {
	enc := Build(fakeSource{}, dict(
		"Subtype", raw.Name{V: "Type1"},
		"BaseFont", raw.Name{V: "Symbol"},
	))
	// 'a' shows alpha in the Symbol builtin encoding
	if got := enc.Decode([]byte{'a'}); got != "α" {
		t.Fatalf("got %q", got)
	}
}

const sampleCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/WMode 0 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0041> <0058>
<0042> <00590059>
endbfchar
1 beginbfrange
<0050> <0052> <0061>
endbfrange
1 beginbfrange
<0060> <0061> [<0070> <0071>]
endbfrange
endcmap
end end`

func TestToUnicodeCMap(t *testing.T) {
	m := ParseToUnicodeCMap([]byte(sampleCMap))
	if s, n := m.lookup([]byte{0x00, 0x41}); s != "X" || n != 2 {
		t.Fatalf("bfchar: %q %d", s, n)
	}
	if s, _ := m.lookup([]byte{0x00, 0x42}); s != "YY" {
		t.Fatalf("multi-char dst: %q", s)
	}
	// scalar range increments the destination
	if s, _ := m.lookup([]byte{0x00, 0x51}); s != "b" {
		t.Fatalf("bfrange: %q", s)
	}
	// array destinations map positionally
	if s, _ := m.lookup([]byte{0x00, 0x61}); s != "q" {
		t.Fatalf("bfrange array: %q", s)
	}
}

func TestIdentityHWithToUnicode(t *testing.T) {
	cmapStream := &raw.Stream{Dict: raw.NewDict(), Data: []byte(sampleCMap)}
	src := fakeSource{10: cmapStream}
	enc := Build(src, dict(
		"Subtype", raw.Name{V: "Type0"},
		"Encoding", raw.Name{V: "Identity-H"},
		"ToUnicode", raw.Ref{R: raw.ObjectRef{Num: 10}},
	))
	if !enc.IsCID {
		t.Fatal("not CID")
	}
	if got := enc.Decode([]byte{0x00, 0x41, 0x00, 0x42}); got != "XYY" {
		t.Fatalf("got %q", got)
	}
	// unmapped CIDs fall back to the code point
	if got := enc.Decode([]byte{0x04, 0x10}); got != "А" {
		t.Fatalf("got %q", got)
	}
}

func TestIdentityHWithoutToUnicode(t *testing.T) {
	enc := Build(fakeSource{}, dict(
		"Subtype", raw.Name{V: "Type0"},
		"Encoding", raw.Name{V: "Identity-H"},
	))
	if got := enc.Decode([]byte{0x00, 'Z'}); got != "Z" {
		t.Fatalf("got %q", got)
	}
}

func TestVerticalWritingMode(t *testing.T) {
	enc := Build(fakeSource{}, dict(
		"Subtype", raw.Name{V: "Type0"},
		"Encoding", raw.Name{V: "Identity-V"},
	))
	if enc.WMode != 1 {
		t.Fatalf("wmode %d", enc.WMode)
	}
}

func TestMapGlyphName(t *testing.T) {
	cases := []struct {
		name string
		want rune
		ok   bool
	}{
		{"bullet", 0x2022, true},
		{"eacute", 0x00E9, true},
		{"uni20AC", 0x20AC, true},
		{"u1D400", 0x1D400, true},
		{"a.sc", 'a', true},
		{"nosuchglyph", 0, false},
	}
	for _, c := range cases {
		got, ok := MapGlyphName(c.name)
		if ok != c.ok || got != c.want {
			t.Errorf("%s: got %U %v", c.name, got, ok)
		}
	}
}

func TestCacheSharesEncodingsByObject(t *testing.T) {
	fontDict := dict("Subtype", raw.Name{V: "Type1"}, "Encoding", raw.Name{V: "WinAnsiEncoding"})
	src := fakeSource{5: fontDict}
	cache := NewCache(src)
	resA := dict("Font", dict("F1", raw.Ref{R: raw.ObjectRef{Num: 5}}))
	resB := dict("Font", dict("G7", raw.Ref{R: raw.ObjectRef{Num: 5}}))
	a := cache.PageFonts(0, resA)["F1"]
	b := cache.PageFonts(1, resB)["G7"]
	if a == nil || a != b {
		t.Fatal("encoding not shared across pages")
	}
	// idempotent per page
	if again := cache.PageFonts(0, resA)["F1"]; again != a {
		t.Fatal("page cache rebuilt")
	}
}
