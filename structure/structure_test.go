package structure

import (
	"testing"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
)

type fakeSource map[int]raw.Object

func (s fakeSource) Get(ref raw.ObjectRef) (raw.Object, error) {
	if obj, ok := s[ref.Num]; ok {
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

func ref(num int) raw.Ref { return raw.Ref{R: raw.ObjectRef{Num: num}} }

func TestParseProducesPageOrder(t *testing.T) {
	// Document -> [P(mcid 0 on pg 30), Sect -> [P(mcid 2), P(mcid 1)]]
	src := fakeSource{
		10: dict("S", raw.Name{V: "Document"}, "Pg", ref(30),
			"K", &raw.Array{Items: []raw.Object{ref(11), ref(12)}}),
		11: dict("S", raw.Name{V: "P"}, "K", raw.Integer{V: 0}),
		12: dict("S", raw.Name{V: "Sect"},
			"K", &raw.Array{Items: []raw.Object{ref(13), ref(14)}}),
		13: dict("S", raw.Name{V: "P"}, "K", raw.Integer{V: 2}),
		14: dict("S", raw.Name{V: "P"}, "K", raw.Integer{V: 1}),
	}
	catalog := dict("StructTreeRoot", dict("K", ref(10)))
	tree, err := Parse(src, catalog, recovery.NewSink(recovery.PolicyDefault))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree == nil {
		t.Fatal("no tree")
	}
	order := tree.PageOrder(30)
	want := []int{0, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("order %v", order)
	}
	for i, mcr := range order {
		if mcr.MCID != want[i] {
			t.Fatalf("order %v, want %v", order, want)
		}
	}
}

func TestArtifactSubtreesSkipped(t *testing.T) {
	src := fakeSource{
		10: dict("S", raw.Name{V: "Document"}, "Pg", ref(30),
			"K", &raw.Array{Items: []raw.Object{ref(11), ref(12)}}),
		11: dict("S", raw.Name{V: "Artifact"}, "K", raw.Integer{V: 7}),
		12: dict("S", raw.Name{V: "P"}, "K", raw.Integer{V: 1}),
	}
	catalog := dict("StructTreeRoot", dict("K", ref(10)))
	tree, _ := Parse(src, catalog, recovery.NewSink(recovery.PolicyDefault))
	order := tree.PageOrder(30)
	if len(order) != 1 || order[0].MCID != 1 {
		t.Fatalf("order %v", order)
	}
}

func TestMCRDictKid(t *testing.T) {
	src := fakeSource{
		10: dict("S", raw.Name{V: "P"}, "Pg", ref(30),
			"K", dict("Type", raw.Name{V: "MCR"}, "MCID", raw.Integer{V: 5}, "Pg", ref(31))),
	}
	catalog := dict("StructTreeRoot", dict("K", ref(10)))
	tree, _ := Parse(src, catalog, recovery.NewSink(recovery.PolicyDefault))
	if order := tree.PageOrder(31); len(order) != 1 || order[0].MCID != 5 {
		t.Fatalf("order %v", order)
	}
	if order := tree.PageOrder(30); len(order) != 0 {
		t.Fatalf("wrong page binned %v", order)
	}
}

func TestCycleGuard(t *testing.T) {
	src := fakeSource{}
	src[10] = dict("S", raw.Name{V: "P"}, "Pg", ref(30), "K", ref(10))
	catalog := dict("StructTreeRoot", dict("K", ref(10)))
	sink := recovery.NewSink(recovery.PolicyPermissive)
	tree, err := Parse(src, catalog, sink)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree == nil {
		t.Fatal("tree lost")
	}
	if sink.Len() == 0 {
		t.Fatal("cycle not recorded")
	}
}

func TestNoStructTree(t *testing.T) {
	tree, err := Parse(fakeSource{}, dict(), recovery.NewSink(recovery.PolicyDefault))
	if err != nil || tree != nil {
		t.Fatalf("got %v %v", tree, err)
	}
}
