package xref

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lulzx/zpdf/filters"
	"github.com/Lulzx/zpdf/parser"
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/scanner"
)

var ErrMissingObject = errors.New("missing object")

// Loader satisfies object lookups against the merged table. Objects
// are cached on first resolve and never evicted for the document
// lifetime.
type Loader struct {
	data     []byte
	table    *Table
	pipeline *filters.Pipeline
	sink     *recovery.Sink
	cache    map[int]raw.Object
	objStms  map[int]*objStm
	depth    int
}

type objStm struct {
	body    []byte
	offsets map[int]int // obj num -> offset into body
}

func NewLoader(data []byte, table *Table, pipeline *filters.Pipeline, sink *recovery.Sink) *Loader {
	if pipeline == nil {
		pipeline = filters.NewPipeline(filters.Limits{})
	}
	return &Loader{
		data:     data,
		table:    table,
		pipeline: pipeline,
		sink:     sink,
		cache:    make(map[int]raw.Object),
		objStms:  make(map[int]*objStm),
	}
}

func (l *Loader) Table() *Table { return l.table }

func (l *Loader) Trailer() *raw.Dict { return l.table.Trailer() }

// Get implements raw.Getter. Missing or free entries are reported as
// missing_object; when the sink's policy continues, the result is
// Null.
func (l *Loader) Get(ref raw.ObjectRef) (raw.Object, error) {
	if obj, ok := l.cache[ref.Num]; ok {
		return obj, nil
	}
	if l.depth >= 32 {
		return nil, fmt.Errorf("%w: resolve depth exceeded at %s", ErrMissingObject, ref)
	}
	l.depth++
	obj, err := l.load(ref)
	l.depth--
	if err != nil {
		return nil, err
	}
	l.cache[ref.Num] = obj
	return obj, nil
}

func (l *Loader) load(ref raw.ObjectRef) (raw.Object, error) {
	entry, ok := l.table.Lookup(ref.Num)
	if !ok || entry.Kind == EntryFree {
		return l.missing(ref, "not in xref table")
	}
	switch entry.Kind {
	case EntryInUse:
		return l.loadAt(ref, entry)
	case EntryCompressed:
		return l.loadCompressed(ref, entry)
	}
	return l.missing(ref, "free entry")
}

func (l *Loader) loadAt(ref raw.ObjectRef, entry Entry) (raw.Object, error) {
	if entry.Offset < 0 || entry.Offset >= int64(len(l.data)) {
		return l.missing(ref, fmt.Sprintf("offset %d out of range", entry.Offset))
	}
	sc := scanner.New(l.data, scanner.Config{Recovery: l.sink})
	if err := sc.Seek(entry.Offset); err != nil {
		return l.missing(ref, err.Error())
	}
	sc.SetLocation(recovery.Location{ObjectNum: ref.Num, ObjectGen: ref.Gen})
	rd := parser.NewReader(sc, l.sink)
	rd.SetLengthResolver(l.resolveLength)
	got, obj, err := rd.ParseIndirect()
	if err != nil {
		if rerr := l.sink.Report(recovery.KindSyntaxError, entry.Offset, err.Error()); rerr != nil {
			return nil, rerr
		}
		return raw.Null{}, nil
	}
	if got.Num != ref.Num {
		return l.missing(ref, fmt.Sprintf("object header names %s", got))
	}
	return obj, nil
}

// loadCompressed pulls an object out of its containing object
// stream: header pairs of (obj num, relative offset), body starting
// at /First.
func (l *Loader) loadCompressed(ref raw.ObjectRef, entry Entry) (raw.Object, error) {
	container := int(entry.Offset)
	stm, ok := l.objStms[container]
	if !ok {
		var err error
		stm, err = l.loadObjStm(container)
		if err != nil {
			return nil, err
		}
		if stm == nil {
			return l.missing(ref, fmt.Sprintf("object stream %d unavailable", container))
		}
		l.objStms[container] = stm
	}
	off, ok := stm.offsets[ref.Num]
	if !ok || off < 0 || off > len(stm.body) {
		return l.missing(ref, fmt.Sprintf("not in object stream %d", container))
	}
	rd := parser.NewBytesReader(stm.body[off:], l.sink)
	obj, err := rd.ParseObject()
	if err != nil {
		if rerr := l.sink.Report(recovery.KindSyntaxError, int64(off), err.Error()); rerr != nil {
			return nil, rerr
		}
		return raw.Null{}, nil
	}
	return obj, nil
}

func (l *Loader) loadObjStm(container int) (*objStm, error) {
	obj, err := l.Get(raw.ObjectRef{Num: container})
	if err != nil {
		return nil, err
	}
	st, ok := obj.(*raw.Stream)
	if !ok {
		return nil, nil
	}
	body, err := l.pipeline.DecodeStream(context.Background(), l, st)
	if err != nil {
		if rerr := l.sink.Report(recovery.KindInvalidStream, st.RawOffset, err.Error()); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}
	n, _ := raw.DictInt(l, st.Dict, "N")
	first, _ := raw.DictInt(l, st.Dict, "First")
	if n <= 0 || first < 0 || first > int64(len(body)) {
		if rerr := l.sink.Report(recovery.KindInvalidStream, st.RawOffset, "bad object stream header"); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}
	stm := &objStm{body: body[first:], offsets: make(map[int]int, n)}
	hdr := parser.NewBytesReader(body[:first], l.sink)
	for i := int64(0); i < n; i++ {
		numTok, err1 := hdr.Next()
		offTok, err2 := hdr.Next()
		if err1 != nil || err2 != nil ||
			numTok.Type != scanner.TokenNumber || offTok.Type != scanner.TokenNumber {
			break
		}
		stm.offsets[int(numTok.Int)] = int(offTok.Int)
	}
	return stm, nil
}

// resolveLength feeds indirect /Length values to the parser before a
// stream body is consumed.
func (l *Loader) resolveLength(ref raw.ObjectRef) (int64, bool) {
	obj, err := l.Get(ref)
	if err != nil {
		return 0, false
	}
	return raw.AsInt(obj)
}

// DecodedStream resolves obj to a stream and runs its filter chain.
// Image codecs come back with filters.ErrNotDecoded and the raw
// payload.
func (l *Loader) DecodedStream(obj raw.Object) ([]byte, *raw.Dict, error) {
	st := raw.DerefStream(l, obj)
	if st == nil {
		return nil, nil, fmt.Errorf("%w: not a stream", ErrMissingObject)
	}
	data, err := l.pipeline.DecodeStream(context.Background(), l, st)
	if err != nil {
		if errors.Is(err, filters.ErrNotDecoded) {
			return data, st.Dict, err
		}
		if rerr := l.sink.Report(recovery.KindInvalidStream, st.RawOffset, err.Error()); rerr != nil {
			return nil, st.Dict, rerr
		}
		return nil, st.Dict, err
	}
	return data, st.Dict, nil
}

func (l *Loader) missing(ref raw.ObjectRef, why string) (raw.Object, error) {
	if rerr := l.sink.Report(recovery.KindMissingObject, 0, fmt.Sprintf("%s: %s", ref, why)); rerr != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMissingObject, ref, why)
	}
	return raw.Null{}, nil
}
