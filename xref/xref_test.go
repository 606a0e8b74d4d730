package xref

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
)

// fixture builds PDF bodies with tracked offsets so tables can be
// written exactly.
type fixture struct {
	buf     bytes.Buffer
	offsets map[int]int64
}

func newFixture() *fixture {
	f := &fixture{offsets: make(map[int]int64)}
	f.buf.WriteString("%PDF-1.4\n")
	return f
}

func (f *fixture) obj(num int, body string) {
	f.offsets[num] = int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

// classicXRef writes a table covering every object added so far and
// returns its offset.
func (f *fixture) classicXRef(trailerExtra string, root int) int64 {
	start := int64(f.buf.Len())
	nums := make([]int, 0, len(f.offsets))
	for n := range f.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	fmt.Fprintf(&f.buf, "xref\n0 1\n0000000000 65535 f \n")
	for _, n := range nums {
		fmt.Fprintf(&f.buf, "%d 1\n%010d 00000 n \n", n, f.offsets[n])
	}
	fmt.Fprintf(&f.buf, "trailer\n<< /Size %d /Root %d 0 R %s >>\n", len(nums)+1, root, trailerExtra)
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", start)
	return start
}

func TestResolveClassicTable(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.obj(2, "(hello)")
	f.classicXRef("", 1)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	e, ok := table.Lookup(2)
	if !ok || e.Kind != EntryInUse || e.Offset != f.offsets[2] {
		t.Fatalf("entry %+v", e)
	}
	if _, ok := table.Trailer().Get("Root"); !ok {
		t.Fatal("trailer missing /Root")
	}
}

func TestLoaderResolvesObjects(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	f.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	f.obj(3, "(string value)")
	f.classicXRef("", 1)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	sink := recovery.NewSink(recovery.PolicyDefault)
	loader := NewLoader(f.buf.Bytes(), table, nil, sink)

	obj, err := loader.Get(raw.ObjectRef{Num: 3})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	s, ok := obj.(raw.String)
	if !ok || string(s.V) != "string value" {
		t.Fatalf("got %#v", obj)
	}
	// second fetch hits the cache and stays identical
	again, _ := loader.Get(raw.ObjectRef{Num: 3})
	if _, ok := again.(raw.String); !ok {
		t.Fatalf("cache returned %#v", again)
	}
}

func TestMissingObjectIsNullUnderDefaultPolicy(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.classicXRef("", 1)
	table, _ := Resolve(f.buf.Bytes(), ResolverConfig{})
	sink := recovery.NewSink(recovery.PolicyDefault)
	loader := NewLoader(f.buf.Bytes(), table, nil, sink)
	obj, err := loader.Get(raw.ObjectRef{Num: 99})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := obj.(raw.Null); !ok {
		t.Fatalf("got %#v", obj)
	}
	if sink.Len() != 1 {
		t.Fatalf("records: %d", sink.Len())
	}
}

func TestMissingObjectFailsStrict(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.classicXRef("", 1)
	table, _ := Resolve(f.buf.Bytes(), ResolverConfig{})
	loader := NewLoader(f.buf.Bytes(), table, nil, recovery.NewSink(recovery.PolicyStrict))
	if _, err := loader.Get(raw.ObjectRef{Num: 99}); err == nil {
		t.Fatal("want error")
	}
}

// Incremental update: a later section redefines object 2 and chains
// to the original through /Prev; the newer offset must win.
func TestPrevChainShadowing(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.obj(2, "(original)")
	firstXRef := f.classicXRef("", 1)

	// incremental section
	updatedAt := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "2 0 obj\n(updated)\nendobj\n")
	secondXRef := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "xref\n2 1\n%010d 00000 n \n", updatedAt)
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\n", firstXRef)
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", secondXRef)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	e, ok := table.Lookup(2)
	if !ok || e.Offset != updatedAt {
		t.Fatalf("entry %+v, want offset %d", e, updatedAt)
	}
	// object 1 still reachable through the chained prior section
	if _, ok := table.Lookup(1); !ok {
		t.Fatal("object 1 lost in chain")
	}

	loader := NewLoader(f.buf.Bytes(), table, nil, recovery.NewSink(recovery.PolicyDefault))
	obj, _ := loader.Get(raw.ObjectRef{Num: 2})
	if s, ok := obj.(raw.String); !ok || string(s.V) != "updated" {
		t.Fatalf("got %#v", obj)
	}
}

func TestPrevCycleDetected(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	start := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "xref\n0 1\n0000000000 65535 f \n")
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 1 /Prev %d >>\n", start)
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", start)
	if _, err := Resolve(f.buf.Bytes(), ResolverConfig{}); err == nil {
		t.Fatal("want cycle error")
	}
}

// XRef stream section: W [1 2 1], no filter, one free entry plus two
// in-use entries.
func TestResolveXRefStream(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.obj(2, "(payload)")

	var entries bytes.Buffer
	write := func(kind byte, field2 int64, field3 byte) {
		entries.WriteByte(kind)
		entries.WriteByte(byte(field2 >> 8))
		entries.WriteByte(byte(field2))
		entries.WriteByte(field3)
	}
	write(0, 0, 0)
	write(1, f.offsets[1], 0)
	write(1, f.offsets[2], 0)

	streamOffset := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "3 0 obj\n<< /Type /XRef /Size 4 /W [1 2 1] /Root 1 0 R /Length %d >>\nstream\n", entries.Len())
	f.buf.Write(entries.Bytes())
	f.buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", streamOffset)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	e, ok := table.Lookup(2)
	if !ok || e.Kind != EntryInUse || e.Offset != f.offsets[2] {
		t.Fatalf("entry %+v", e)
	}
}

// Object streams: entries of kind 2 point into a /Type /ObjStm
// container.
func TestCompressedObjectResolution(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")

	// object stream 4 holds objects 5 and 6
	body := "(five) (six)"
	header := "5 0 6 7 "
	stm := header + body
	f.obj(4, fmt.Sprintf("<< /Type /ObjStm /N 2 /First %d /Length %d >>\nstream\n%s\nendstream", len(header), len(stm), stm))

	var entries bytes.Buffer
	write := func(kind byte, f2 int64, f3 byte) {
		entries.WriteByte(kind)
		entries.WriteByte(byte(f2 >> 8))
		entries.WriteByte(byte(f2))
		entries.WriteByte(f3)
	}
	write(0, 0, 0)            // 0 free
	write(1, f.offsets[1], 0) // 1
	write(0, 0, 0)            // 2 unused
	write(0, 0, 0)            // 3 (the xref stream itself, not needed again)
	write(1, f.offsets[4], 0) // 4 container
	write(2, 4, 0)            // 5 -> objstm 4 index 0
	write(2, 4, 1)            // 6 -> objstm 4 index 1

	streamOffset := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "3 0 obj\n<< /Type /XRef /Size 7 /W [1 2 1] /Root 1 0 R /Length %d >>\nstream\n", entries.Len())
	f.buf.Write(entries.Bytes())
	f.buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", streamOffset)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	loader := NewLoader(f.buf.Bytes(), table, nil, recovery.NewSink(recovery.PolicyDefault))
	obj, err := loader.Get(raw.ObjectRef{Num: 6})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s, ok := obj.(raw.String); !ok || string(s.V) != "six" {
		t.Fatalf("got %#v", obj)
	}
}

// Hybrid files: the classic table lists the hidden object as free
// and the /XRefStm section supplies its real entry.
func TestHybridXRefStm(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.obj(2, "(hidden)")

	var entries bytes.Buffer
	entries.Write([]byte{1, byte(f.offsets[2] >> 8), byte(f.offsets[2]), 0})
	stmOffset := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "3 0 obj\n<< /Type /XRef /Size 3 /Index [2 1] /W [1 2 1] /Length %d >>\nstream\n", entries.Len())
	f.buf.Write(entries.Bytes())
	f.buf.WriteString("\nendstream\nendobj\n")

	tableOffset := int64(f.buf.Len())
	fmt.Fprintf(&f.buf, "xref\n0 1\n0000000000 65535 f \n1 1\n%010d 00000 n \n2 1\n0000000000 00000 f \n", f.offsets[1])
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R /XRefStm %d >>\n", stmOffset)
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", tableOffset)

	table, err := Resolve(f.buf.Bytes(), ResolverConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	e, ok := table.Lookup(2)
	if !ok || e.Kind != EntryInUse || e.Offset != f.offsets[2] {
		t.Fatalf("entry %+v", e)
	}
}

func TestStartXRefMissing(t *testing.T) {
	if _, err := Resolve([]byte("%PDF-1.4\nno tables here"), ResolverConfig{}); err == nil {
		t.Fatal("want error")
	}
}
