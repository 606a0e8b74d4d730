// Package structure parses the Tagged-PDF structure tree and derives
// per-page marked-content reading order.
package structure

import (
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/strutil"
)

// Source is the document view structure parsing needs.
type Source interface {
	raw.Getter
}

const maxDepth = 256

// MarkedContentRef ties an MCID to the page (and optionally the
// content stream object) it appears in.
type MarkedContentRef struct {
	MCID      int
	PageNum   int // page object number
	StreamNum int // content stream object number, 0 when unset
}

// Element is one structure tree node. Children either point at
// another element or reference marked content; the pointers form a
// strict tree and stay stable after construction.
type Element struct {
	Kind     string
	Title    string
	Alt      string
	Page     raw.ObjectRef
	Children []Child
}

type Child struct {
	Element *Element
	MCR     *MarkedContentRef
}

// Tree is the parsed structure tree plus the per-page MCID order
// derived from it.
type Tree struct {
	Root   *Element
	byPage map[int][]MarkedContentRef
}

// Parse walks /StructTreeRoot. A nil return (without error) means the
// document carries no structure tree.
func Parse(src Source, catalog *raw.Dict, sink *recovery.Sink) (*Tree, error) {
	if catalog == nil {
		return nil, nil
	}
	rootDict := raw.DerefDict(src, catalog.Lookup("StructTreeRoot"))
	if rootDict == nil {
		return nil, nil
	}
	p := &treeParser{
		src:     src,
		sink:    sink,
		visited: make(map[raw.ObjectRef]bool),
	}
	root := &Element{Kind: "StructTreeRoot"}
	p.parseKids(root, rootDict.Lookup("K"), raw.ObjectRef{}, 0)
	t := &Tree{Root: root, byPage: make(map[int][]MarkedContentRef)}
	t.collect(root)
	return t, nil
}

// PageOrder returns the document-order MCID list for one page object
// number.
func (t *Tree) PageOrder(pageObjNum int) []MarkedContentRef {
	if t == nil {
		return nil
	}
	return t.byPage[pageObjNum]
}

// collect walks the finished tree in pre-order, binning MCIDs by
// page.
func (t *Tree) collect(el *Element) {
	for _, child := range el.Children {
		if child.MCR != nil {
			t.byPage[child.MCR.PageNum] = append(t.byPage[child.MCR.PageNum], *child.MCR)
			continue
		}
		if child.Element != nil {
			t.collect(child.Element)
		}
	}
}

type treeParser struct {
	src     Source
	sink    *recovery.Sink
	visited map[raw.ObjectRef]bool
}

// parseElement builds one node. inheritedPg is the nearest ancestor
// /Pg, applied to kids that do not carry their own.
func (p *treeParser) parseElement(obj raw.Object, inheritedPg raw.ObjectRef, depth int) *Element {
	if depth > maxDepth {
		p.report("structure tree deeper than 256")
		return nil
	}
	if ref, ok := obj.(raw.Ref); ok {
		if p.visited[ref.R] {
			p.report("structure tree cycle at " + ref.R.String())
			return nil
		}
		p.visited[ref.R] = true
	}
	dict := raw.DerefDict(p.src, obj)
	if dict == nil {
		return nil
	}
	kind, _ := raw.DictName(p.src, dict, "S")
	if kind == "Artifact" {
		return nil
	}
	el := &Element{Kind: kind, Page: inheritedPg}
	if pg, ok := dict.Lookup("Pg").(raw.Ref); ok {
		el.Page = pg.R
	}
	if title, ok := raw.DictString(p.src, dict, "T"); ok {
		el.Title = strutil.DecodeTextString(title)
	}
	if alt, ok := raw.DictString(p.src, dict, "Alt"); ok {
		el.Alt = strutil.DecodeTextString(alt)
	}
	p.parseKids(el, dict.Lookup("K"), el.Page, depth)
	return el
}

// parseKids handles every /K shape: a bare MCID integer, an MCR or
// OBJR dict, a nested element, or an array of any of those.
func (p *treeParser) parseKids(el *Element, kids raw.Object, pg raw.ObjectRef, depth int) {
	switch v := kids.(type) {
	case raw.Integer:
		el.Children = append(el.Children, Child{MCR: &MarkedContentRef{
			MCID:    int(v.V),
			PageNum: pg.Num,
		}})
		return
	case raw.Null, nil:
		return
	}
	// an array groups kids; anything else is one kid
	if arr := raw.DerefArray(p.src, kids); arr != nil {
		for _, item := range arr.Items {
			p.parseKid(el, item, pg, depth)
		}
		return
	}
	p.parseKid(el, kids, pg, depth)
}

func (p *treeParser) parseKid(el *Element, kid raw.Object, pg raw.ObjectRef, depth int) {
	if mcid, ok := kid.(raw.Integer); ok {
		el.Children = append(el.Children, Child{MCR: &MarkedContentRef{
			MCID:    int(mcid.V),
			PageNum: pg.Num,
		}})
		return
	}
	dict := raw.DerefDict(p.src, kid)
	if dict == nil {
		return
	}
	typ, _ := raw.DictName(p.src, dict, "Type")
	switch typ {
	case "MCR":
		mcr := &MarkedContentRef{PageNum: pg.Num}
		if mcid, ok := raw.DictInt(p.src, dict, "MCID"); ok {
			mcr.MCID = int(mcid)
		}
		if pgRef, ok := dict.Lookup("Pg").(raw.Ref); ok {
			mcr.PageNum = pgRef.R.Num
		}
		if stm, ok := dict.Lookup("Stm").(raw.Ref); ok {
			mcr.StreamNum = stm.R.Num
		}
		el.Children = append(el.Children, Child{MCR: mcr})
		return
	case "OBJR":
		// object references (annotations etc.) carry no text
		return
	}
	if child := p.parseElement(kid, pg, depth+1); child != nil {
		el.Children = append(el.Children, Child{Element: child})
	}
}

func (p *treeParser) report(msg string) {
	if p.sink != nil {
		p.sink.Report(recovery.KindSyntaxError, 0, msg)
	}
}
