// Package pages flattens the /Pages tree into an indexed slice of
// leaves with inherited attributes resolved.
package pages

import (
	"errors"
	"fmt"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
)

// Page is one flattened leaf. Resources, MediaBox, CropBox and Rotate
// are the inheritance-resolved values; RawDict keeps the leaf as
// parsed.
type Page struct {
	Ref       raw.ObjectRef
	MediaBox  [4]float64
	CropBox   [4]float64
	HasCrop   bool
	Rotation  int
	Resources *raw.Dict
	Contents  raw.Object
	RawDict   *raw.Dict
}

// Width and Height are the media box extents.
func (p *Page) Width() float64  { return p.MediaBox[2] - p.MediaBox[0] }
func (p *Page) Height() float64 { return p.MediaBox[3] - p.MediaBox[1] }

const maxDepth = 64

// letterBox is the fallback when no /MediaBox is reachable.
var letterBox = [4]float64{0, 0, 612, 792}

var ErrPageTree = errors.New("invalid page tree")

// inherited carries the per-key attribute values accumulated on the
// way down; each key resolves independently from the nearest ancestor
// that defines it.
type inherited struct {
	resources *raw.Dict
	mediaBox  raw.Object
	cropBox   raw.Object
	rotate    raw.Object
}

// Flatten walks the catalog's /Pages tree in order. The /Type key is
// advisory: a node with /Kids is an interior node, a node carrying
// /Contents or /MediaBox without /Kids is a leaf.
func Flatten(g raw.Getter, catalog *raw.Dict, sink *recovery.Sink) ([]Page, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", ErrPageTree)
	}
	rootObj := catalog.Lookup("Pages")
	w := &walker{g: g, sink: sink, visited: make(map[raw.ObjectRef]bool)}
	if err := w.walk(rootObj, inherited{}, 0); err != nil {
		return nil, err
	}
	return w.pages, nil
}

type walker struct {
	g       raw.Getter
	sink    *recovery.Sink
	visited map[raw.ObjectRef]bool
	pages   []Page
}

func (w *walker) walk(obj raw.Object, inh inherited, depth int) error {
	if depth > maxDepth {
		return w.report(fmt.Errorf("%w: deeper than %d", ErrPageTree, maxDepth))
	}
	var ref raw.ObjectRef
	if r, ok := obj.(raw.Ref); ok {
		ref = r.R
		if w.visited[ref] {
			return w.report(fmt.Errorf("%w: cycle at %s", ErrPageTree, ref))
		}
		w.visited[ref] = true
	}
	node := raw.DerefDict(w.g, obj)
	if node == nil {
		return w.report(fmt.Errorf("%w: node is not a dictionary", ErrPageTree))
	}

	if res := raw.DerefDict(w.g, node.Lookup("Resources")); res != nil {
		inh.resources = res
	}
	if mb, ok := node.Get("MediaBox"); ok {
		inh.mediaBox = mb
	}
	if cb, ok := node.Get("CropBox"); ok {
		inh.cropBox = cb
	}
	if rot, ok := node.Get("Rotate"); ok {
		inh.rotate = rot
	}

	typ, _ := raw.DictName(w.g, node, "Type")
	kids := raw.DerefArray(w.g, node.Lookup("Kids"))
	isInterior := typ == "Pages" || (typ == "" && kids != nil)
	if isInterior && kids != nil {
		for _, kid := range kids.Items {
			if err := w.walk(kid, inh, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	_, hasContents := node.Get("Contents")
	if typ != "Page" && !hasContents && inh.mediaBox == nil {
		return w.report(fmt.Errorf("%w: node is neither interior nor leaf", ErrPageTree))
	}
	w.pages = append(w.pages, w.leaf(ref, node, inh))
	return nil
}

func (w *walker) leaf(ref raw.ObjectRef, node *raw.Dict, inh inherited) Page {
	p := Page{
		Ref:       ref,
		MediaBox:  letterBox,
		Resources: inh.resources,
		Contents:  node.Lookup("Contents"),
		RawDict:   node,
	}
	if mb, ok := raw.Rect(w.g, inh.mediaBox); ok {
		p.MediaBox = mb
	}
	if cb, ok := raw.Rect(w.g, inh.cropBox); ok {
		p.CropBox = cb
		p.HasCrop = true
	}
	if rot, ok := raw.AsInt(raw.Deref(w.g, orNull(inh.rotate))); ok {
		r := int(rot) % 360
		if r < 0 {
			r += 360
		}
		p.Rotation = r / 90 * 90
	}
	return p
}

func orNull(obj raw.Object) raw.Object {
	if obj == nil {
		return raw.Null{}
	}
	return obj
}

// report routes a structural error through the sink; permissive
// policies skip the offending subtree.
func (w *walker) report(err error) error {
	if w.sink == nil {
		return err
	}
	if rerr := w.sink.Report(recovery.KindSyntaxError, 0, err.Error()); rerr != nil {
		return err
	}
	return nil
}
