// Package raw holds the PDF object model: the tagged sum type every
// other package parses into or reads out of.
package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object. Num 0 is
// reserved for the free-list head.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Kind discriminates the Object variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindReal
	KindName
	KindString
	KindArray
	KindDict
	KindStream
	KindRef
)

// Object is the base of the PDF object sum type. Containers are
// immutable once parsed; the parser is the only writer.
type Object interface {
	Kind() Kind
}

// Getter resolves indirect references to parsed objects.
type Getter interface {
	Get(ref ObjectRef) (Object, error)
}

// Deref resolves obj through g if it is a reference; any other object
// is returned unchanged. A failed resolve yields Null.
func Deref(g Getter, obj Object) Object {
	if obj == nil {
		return Null{}
	}
	for i := 0; i < 32; i++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		if g == nil {
			return Null{}
		}
		resolved, err := g.Get(ref.R)
		if err != nil || resolved == nil {
			return Null{}
		}
		obj = resolved
	}
	return Null{}
}

// DerefDict resolves obj to a dictionary, looking through references
// and stream wrappers.
func DerefDict(g Getter, obj Object) *Dict {
	switch v := Deref(g, obj).(type) {
	case *Dict:
		return v
	case *Stream:
		return v.Dict
	}
	return nil
}

// DerefArray resolves obj to an array.
func DerefArray(g Getter, obj Object) *Array {
	if arr, ok := Deref(g, obj).(*Array); ok {
		return arr
	}
	return nil
}

// DerefStream resolves obj to a stream.
func DerefStream(g Getter, obj Object) *Stream {
	if st, ok := Deref(g, obj).(*Stream); ok {
		return st
	}
	return nil
}
