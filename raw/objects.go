package raw

// Concrete object variants.

type Null struct{}

func (Null) Kind() Kind { return KindNull }

type Bool struct{ V bool }

func (Bool) Kind() Kind { return KindBool }

type Integer struct{ V int64 }

func (Integer) Kind() Kind { return KindInteger }

type Real struct{ V float64 }

func (Real) Kind() Kind { return KindReal }

// Name is a PDF name with hex escapes already decoded.
type Name struct{ V string }

func (Name) Kind() Kind { return KindName }

// String carries raw string bytes, un-decoded: the payload may be
// PDFDocEncoding or BOM-prefixed UTF-16BE. Hex records whether the
// source syntax was <...>; hex nibbles are already decoded to bytes.
type String struct {
	V   []byte
	Hex bool
}

func (String) Kind() Kind { return KindString }

type Array struct{ Items []Object }

func (*Array) Kind() Kind { return KindArray }

func (a *Array) Len() int { return len(a.Items) }

func (a *Array) At(i int) Object {
	if i < 0 || i >= len(a.Items) {
		return Null{}
	}
	return a.Items[i]
}

func (a *Array) Append(obj Object) { a.Items = append(a.Items, obj) }

// Dict is a name→object map with stable insertion order. Setting an
// existing key overwrites in place and keeps the original position.
type Dict struct {
	keys  []string
	index map[string]Object
}

func NewDict() *Dict {
	return &Dict{index: make(map[string]Object)}
}

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) Get(key string) (Object, bool) {
	obj, ok := d.index[key]
	return obj, ok
}

// Lookup is Get without the presence flag; absent keys yield Null.
func (d *Dict) Lookup(key string) Object {
	if obj, ok := d.index[key]; ok {
		return obj
	}
	return Null{}
}

func (d *Dict) Set(key string, value Object) {
	if d.index == nil {
		d.index = make(map[string]Object)
	}
	if _, exists := d.index[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.index[key] = value
}

func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *Dict) Len() int { return len(d.keys) }

// Stream pairs a dictionary with its raw, still-encoded payload.
// RawOffset is the byte offset of the 'stream' keyword that introduces
// the payload, in the bytes the stream was parsed from.
type Stream struct {
	Dict      *Dict
	Data      []byte
	RawOffset int64
}

func (*Stream) Kind() Kind { return KindStream }

// Ref is an unresolved indirect reference.
type Ref struct{ R ObjectRef }

func (Ref) Kind() Kind { return KindRef }

// Conversion helpers. Each returns the zero value and false when the
// object is not of the requested shape; integers widen to floats.

func AsInt(obj Object) (int64, bool) {
	switch v := obj.(type) {
	case Integer:
		return v.V, true
	case Real:
		return int64(v.V), true
	}
	return 0, false
}

func AsFloat(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v.V), true
	case Real:
		return v.V, true
	}
	return 0, false
}

func AsName(obj Object) (string, bool) {
	if n, ok := obj.(Name); ok {
		return n.V, true
	}
	return "", false
}

func AsString(obj Object) ([]byte, bool) {
	if s, ok := obj.(String); ok {
		return s.V, true
	}
	return nil, false
}

func AsBool(obj Object) (bool, bool) {
	if b, ok := obj.(Bool); ok {
		return b.V, true
	}
	return false, false
}

// DictInt resolves key in dict through g and converts to int64.
func DictInt(g Getter, d *Dict, key string) (int64, bool) {
	if d == nil {
		return 0, false
	}
	return AsInt(Deref(g, d.Lookup(key)))
}

// DictFloat resolves key in dict through g and converts to float64.
func DictFloat(g Getter, d *Dict, key string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	return AsFloat(Deref(g, d.Lookup(key)))
}

// DictName resolves key in dict through g and converts to a name.
func DictName(g Getter, d *Dict, key string) (string, bool) {
	if d == nil {
		return "", false
	}
	return AsName(Deref(g, d.Lookup(key)))
}

// DictString resolves key in dict through g and returns string bytes.
func DictString(g Getter, d *Dict, key string) ([]byte, bool) {
	if d == nil {
		return nil, false
	}
	return AsString(Deref(g, d.Lookup(key)))
}

// Rect converts a four-element number array to [x0 y0 x1 y1] with the
// corners normalized so x0 <= x1 and y0 <= y1.
func Rect(g Getter, obj Object) ([4]float64, bool) {
	arr := DerefArray(g, obj)
	if arr == nil || arr.Len() < 4 {
		return [4]float64{}, false
	}
	var r [4]float64
	for i := 0; i < 4; i++ {
		f, ok := AsFloat(Deref(g, arr.At(i)))
		if !ok {
			return [4]float64{}, false
		}
		r[i] = f
	}
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	return r, true
}
