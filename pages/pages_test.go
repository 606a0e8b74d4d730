package pages

import (
	"testing"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
)

// fakeGetter resolves references from a plain map.
type fakeGetter map[int]raw.Object

func (g fakeGetter) Get(ref raw.ObjectRef) (raw.Object, error) {
	if obj, ok := g[ref.Num]; ok {
		return obj, nil
	}
	return raw.Null{}, nil
}

func dict(pairs ...interface{}) *raw.Dict {
	d := raw.NewDict()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(raw.Object))
	}
	return d
}

func mediaBox(x0, y0, x1, y1 float64) *raw.Array {
	return &raw.Array{Items: []raw.Object{
		raw.Real{V: x0}, raw.Real{V: y0}, raw.Real{V: x1}, raw.Real{V: y1},
	}}
}

func TestFlattenWithInheritance(t *testing.T) {
	g := fakeGetter{
		2: dict(
			"Type", raw.Name{V: "Pages"},
			"MediaBox", mediaBox(0, 0, 612, 792),
			"Resources", dict("Font", dict()),
			"Kids", &raw.Array{Items: []raw.Object{raw.Ref{R: raw.ObjectRef{Num: 3}}, raw.Ref{R: raw.ObjectRef{Num: 4}}}},
		),
		3: dict(
			"Type", raw.Name{V: "Page"},
			"Contents", raw.Null{},
		),
		4: dict(
			"Type", raw.Name{V: "Page"},
			"MediaBox", mediaBox(0, 0, 300, 400),
			"Rotate", raw.Integer{V: 90},
		),
	}
	catalog := dict("Pages", raw.Ref{R: raw.ObjectRef{Num: 2}})
	sink := recovery.NewSink(recovery.PolicyDefault)
	flat, err := Flatten(g, catalog, sink)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("pages: %d", len(flat))
	}
	if flat[0].MediaBox != [4]float64{0, 0, 612, 792} {
		t.Fatalf("inherited media box %v", flat[0].MediaBox)
	}
	if flat[0].Resources == nil {
		t.Fatal("resources not inherited")
	}
	if flat[1].MediaBox != [4]float64{0, 0, 300, 400} {
		t.Fatalf("own media box %v", flat[1].MediaBox)
	}
	if flat[1].Rotation != 90 {
		t.Fatalf("rotation %d", flat[1].Rotation)
	}
	if flat[0].Ref.Num != 3 || flat[1].Ref.Num != 4 {
		t.Fatalf("order %v %v", flat[0].Ref, flat[1].Ref)
	}
}

// A leaf without /Type still counts as a page when it carries
// /Contents or /MediaBox and no /Kids.
func TestLeafWithoutType(t *testing.T) {
	g := fakeGetter{
		2: dict(
			"Kids", &raw.Array{Items: []raw.Object{raw.Ref{R: raw.ObjectRef{Num: 3}}}},
		),
		3: dict(
			"MediaBox", mediaBox(0, 0, 200, 200),
			"Contents", raw.Null{},
		),
	}
	catalog := dict("Pages", raw.Ref{R: raw.ObjectRef{Num: 2}})
	flat, err := Flatten(g, catalog, recovery.NewSink(recovery.PolicyDefault))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if len(flat) != 1 {
		t.Fatalf("pages: %d", len(flat))
	}
}

func TestCycleDetection(t *testing.T) {
	g := fakeGetter{}
	g[2] = dict(
		"Type", raw.Name{V: "Pages"},
		"Kids", &raw.Array{Items: []raw.Object{raw.Ref{R: raw.ObjectRef{Num: 2}}}},
	)
	catalog := dict("Pages", raw.Ref{R: raw.ObjectRef{Num: 2}})
	sink := recovery.NewSink(recovery.PolicyPermissive)
	flat, err := Flatten(g, catalog, sink)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if len(flat) != 0 {
		t.Fatalf("pages: %d", len(flat))
	}
	if sink.Len() == 0 {
		t.Fatal("cycle not recorded")
	}
}

func TestRotationNormalized(t *testing.T) {
	g := fakeGetter{
		2: dict(
			"Type", raw.Name{V: "Page"},
			"MediaBox", mediaBox(0, 0, 100, 100),
			"Rotate", raw.Integer{V: -90},
		),
	}
	catalog := dict("Pages", raw.Ref{R: raw.ObjectRef{Num: 2}})
	flat, err := Flatten(g, catalog, recovery.NewSink(recovery.PolicyDefault))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if flat[0].Rotation != 270 {
		t.Fatalf("rotation %d", flat[0].Rotation)
	}
}
