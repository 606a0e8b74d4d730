// Package xref locates and parses cross-reference information and
// serves object lookups over the chained view.
package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Lulzx/zpdf/filters"
	"github.com/Lulzx/zpdf/parser"
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/scanner"
)

type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryInUse
	EntryCompressed
)

// Entry is one slot of the chained table. For EntryInUse, Offset is a
// byte offset and Gen a generation; for EntryCompressed, Offset is
// the containing object stream's object number and Gen the index
// within it.
type Entry struct {
	Kind   EntryKind
	Offset int64
	Gen    int
}

// Table is the merged view over every xref section in the update
// chain. Newer sections shadow older ones.
type Table struct {
	entries map[int]Entry
	trailer *raw.Dict
}

func (t *Table) Lookup(num int) (Entry, bool) {
	e, ok := t.entries[num]
	return e, ok
}

// Trailer returns the merged trailer dictionary, newest keys first.
func (t *Table) Trailer() *raw.Dict { return t.trailer }

func (t *Table) Len() int { return len(t.entries) }

type ResolverConfig struct {
	MaxPrevDepth int // /Prev chain cap; 0 means the default of 32
	Recovery     recovery.Strategy
	Pipeline     *filters.Pipeline
}

const defaultMaxPrevDepth = 32

var (
	ErrNoStartXRef = errors.New("startxref not found")
	ErrBadXRef     = errors.New("invalid xref")
)

// Resolve finds startxref in the window's tail and walks the chain of
// classic tables and xref streams into one merged Table.
func Resolve(data []byte, cfg ResolverConfig) (*Table, error) {
	if cfg.MaxPrevDepth <= 0 {
		cfg.MaxPrevDepth = defaultMaxPrevDepth
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = filters.NewPipeline(filters.Limits{})
	}
	offset, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	r := &resolver{data: data, cfg: cfg, visited: make(map[int64]bool)}
	t := &Table{entries: make(map[int]Entry), trailer: raw.NewDict()}
	if err := r.walk(t, offset, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// findStartXRef scans the last KiB of the window for the startxref
// keyword and parses the offset that follows.
func findStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXRef
	}
	rest := tail[idx+len("startxref"):]
	start := 0
	for start < len(rest) && scanner.IsWhitespace(rest[start]) {
		start++
	}
	end := start
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == start {
		return 0, fmt.Errorf("%w: startxref not followed by an offset", ErrBadXRef)
	}
	off, err := strconv.ParseInt(string(rest[start:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadXRef, err)
	}
	if off <= 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("%w: offset %d out of range", ErrBadXRef, off)
	}
	return off, nil
}

type resolver struct {
	data    []byte
	cfg     ResolverConfig
	visited map[int64]bool
}

// walk parses the section at offset and recurses through /XRefStm and
// /Prev. Entries already present in t shadow what this (older)
// section contributes.
func (r *resolver) walk(t *Table, offset int64, depth int) error {
	if depth >= r.cfg.MaxPrevDepth {
		return fmt.Errorf("%w: /Prev chain deeper than %d", ErrBadXRef, r.cfg.MaxPrevDepth)
	}
	if r.visited[offset] {
		return fmt.Errorf("%w: cycle at offset %d", ErrBadXRef, offset)
	}
	r.visited[offset] = true
	if offset < 0 || offset >= int64(len(r.data)) {
		return fmt.Errorf("%w: section offset %d out of range", ErrBadXRef, offset)
	}

	sc := scanner.New(r.data, scanner.Config{Recovery: r.cfg.Recovery})
	if err := sc.Seek(offset); err != nil {
		return fmt.Errorf("%w: %v", ErrBadXRef, err)
	}
	rd := parser.NewReader(sc, r.cfg.Recovery)
	tok, err := rd.Next()
	if err != nil {
		return fmt.Errorf("%w: empty section at %d", ErrBadXRef, offset)
	}

	var trailer *raw.Dict
	if tok.Type == scanner.TokenKeyword && tok.Str == "xref" {
		trailer, err = r.parseClassic(t, rd)
	} else {
		rd.Unread(tok)
		trailer, err = r.parseStream(t, rd)
	}
	if err != nil {
		return err
	}
	if trailer == nil {
		return fmt.Errorf("%w: section at %d has no trailer", ErrBadXRef, offset)
	}
	mergeTrailer(t.trailer, trailer)

	// Hybrid files: the classic trailer names an xref stream holding
	// the objects the table lists as free. Its in-use entries fill
	// both gaps and free slots, but never displace a live entry.
	if stm, ok := raw.AsInt(trailer.Lookup("XRefStm")); ok {
		sub := &Table{entries: make(map[int]Entry), trailer: raw.NewDict()}
		if err := r.walk(sub, stm, depth+1); err != nil {
			if !r.allow(err) {
				return err
			}
		}
		for num, entry := range sub.entries {
			existing, exists := t.entries[num]
			if !exists || (existing.Kind == EntryFree && entry.Kind != EntryFree) {
				t.entries[num] = entry
			}
		}
		mergeTrailer(t.trailer, sub.trailer)
	}
	if prev, ok := raw.AsInt(trailer.Lookup("Prev")); ok {
		return r.walk(t, prev, depth+1)
	}
	return nil
}

// parseClassic reads subsections of fixed-width entries up to the
// trailer keyword.
func (r *resolver) parseClassic(t *Table, rd *parser.Reader) (*raw.Dict, error) {
	for {
		tok, err := rd.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated table", ErrBadXRef)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			obj, err := rd.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("%w: trailer: %v", ErrBadXRef, err)
			}
			dict, ok := obj.(*raw.Dict)
			if !ok {
				return nil, fmt.Errorf("%w: trailer is not a dictionary", ErrBadXRef)
			}
			return dict, nil
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, fmt.Errorf("%w: subsection header expected at %d", ErrBadXRef, tok.Pos)
		}
		first := int(tok.Int)
		countTok, err := rd.Next()
		if err != nil || countTok.Type != scanner.TokenNumber || !countTok.IsInt {
			return nil, fmt.Errorf("%w: subsection count expected", ErrBadXRef)
		}
		count := int(countTok.Int)
		for i := 0; i < count; i++ {
			offTok, err := rd.Next()
			if err != nil || offTok.Type != scanner.TokenNumber {
				return nil, fmt.Errorf("%w: entry offset expected", ErrBadXRef)
			}
			genTok, err := rd.Next()
			if err != nil || genTok.Type != scanner.TokenNumber {
				return nil, fmt.Errorf("%w: entry generation expected", ErrBadXRef)
			}
			kindTok, err := rd.Next()
			if err != nil || kindTok.Type != scanner.TokenKeyword {
				return nil, fmt.Errorf("%w: entry type expected", ErrBadXRef)
			}
			num := first + i
			if _, exists := t.entries[num]; exists {
				continue
			}
			switch kindTok.Str {
			case "n":
				t.entries[num] = Entry{Kind: EntryInUse, Offset: offTok.Int, Gen: int(genTok.Int)}
			case "f":
				t.entries[num] = Entry{Kind: EntryFree, Offset: offTok.Int, Gen: int(genTok.Int)}
			default:
				return nil, fmt.Errorf("%w: entry type %q", ErrBadXRef, kindTok.Str)
			}
		}
	}
}

// parseStream reads a /Type /XRef stream object: /W field widths,
// optional /Index subsections, payload decoded through the filter
// pipeline.
func (r *resolver) parseStream(t *Table, rd *parser.Reader) (*raw.Dict, error) {
	_, obj, err := rd.ParseIndirect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadXRef, err)
	}
	st, ok := obj.(*raw.Stream)
	if !ok {
		return nil, fmt.Errorf("%w: not an xref stream", ErrBadXRef)
	}
	if typ, _ := raw.AsName(st.Dict.Lookup("Type")); typ != "XRef" {
		return nil, fmt.Errorf("%w: stream /Type is %q", ErrBadXRef, typ)
	}
	size, ok := raw.AsInt(st.Dict.Lookup("Size"))
	if !ok {
		return nil, fmt.Errorf("%w: xref stream missing /Size", ErrBadXRef)
	}
	wArr, ok := st.Dict.Lookup("W").(*raw.Array)
	if !ok || wArr.Len() < 3 {
		return nil, fmt.Errorf("%w: xref stream missing /W", ErrBadXRef)
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := raw.AsInt(wArr.At(i))
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("%w: bad /W entry", ErrBadXRef)
		}
		w[i] = int(n)
	}
	index := []int{0, int(size)}
	if idxArr, ok := st.Dict.Lookup("Index").(*raw.Array); ok {
		index = index[:0]
		for _, item := range idxArr.Items {
			n, ok := raw.AsInt(item)
			if !ok {
				return nil, fmt.Errorf("%w: bad /Index entry", ErrBadXRef)
			}
			index = append(index, int(n))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("%w: odd /Index length", ErrBadXRef)
		}
	}
	payload, err := r.cfg.Pipeline.DecodeStream(context.Background(), nil, st)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrBadXRef, err)
	}
	entryLen := w[0] + w[1] + w[2]
	if entryLen == 0 {
		return nil, fmt.Errorf("%w: zero-width entries", ErrBadXRef)
	}
	pos := 0
	for s := 0; s+1 < len(index); s += 2 {
		first, count := index[s], index[s+1]
		for i := 0; i < count; i++ {
			if pos+entryLen > len(payload) {
				return st.Dict, nil // short payload: keep what parsed
			}
			f1 := int64(1) // kind defaults to in_use when w1 == 0
			if w[0] > 0 {
				f1 = beUint(payload[pos : pos+w[0]])
			}
			f2 := beUint(payload[pos+w[0] : pos+w[0]+w[1]])
			f3 := beUint(payload[pos+w[0]+w[1] : pos+entryLen])
			pos += entryLen
			num := first + i
			if _, exists := t.entries[num]; exists {
				continue
			}
			switch f1 {
			case 0:
				t.entries[num] = Entry{Kind: EntryFree, Offset: f2, Gen: int(f3)}
			case 1:
				t.entries[num] = Entry{Kind: EntryInUse, Offset: f2, Gen: int(f3)}
			case 2:
				t.entries[num] = Entry{Kind: EntryCompressed, Offset: f2, Gen: int(f3)}
			}
		}
	}
	return st.Dict, nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// mergeTrailer folds src keys into dst without overwriting: the
// newest section's values win.
func mergeTrailer(dst, src *raw.Dict) {
	for _, key := range src.Keys() {
		if _, exists := dst.Get(key); !exists {
			if v, ok := src.Get(key); ok {
				dst.Set(key, v)
			}
		}
	}
}

func (r *resolver) allow(err error) bool {
	if r.cfg.Recovery == nil {
		return false
	}
	action := r.cfg.Recovery.OnError(err, recovery.Location{Component: "xref"})
	return action == recovery.ActionSkip || action == recovery.ActionWarn
}
