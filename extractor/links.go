package extractor

import (
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/strutil"
)

// Link is one /Subtype /Link annotation: its rectangle plus either a
// URI or a resolved destination page (-1 when absent).
type Link struct {
	Rect     [4]float64
	URI      string
	DestPage int
}

// PageLinks reads the page's /Annots array.
func (e *Extractor) PageLinks(page int) ([]Link, error) {
	p, err := e.Page(page)
	if err != nil {
		return nil, err
	}
	annots := raw.DerefArray(e.src, p.RawDict.Lookup("Annots"))
	if annots == nil {
		return nil, nil
	}
	var links []Link
	for _, item := range annots.Items {
		annot := raw.DerefDict(e.src, item)
		if annot == nil {
			continue
		}
		if sub, _ := raw.DictName(e.src, annot, "Subtype"); sub != "Link" {
			continue
		}
		link := Link{DestPage: -1}
		if rect, ok := raw.Rect(e.src, annot.Lookup("Rect")); ok {
			link.Rect = rect
		}
		if action := raw.DerefDict(e.src, annot.Lookup("A")); action != nil {
			if uri, ok := raw.DictString(e.src, action, "URI"); ok {
				link.URI = strutil.DecodeTextString(uri)
			}
			link.DestPage = e.resolveDest(action.Lookup("D"))
		}
		if link.URI == "" && link.DestPage < 0 {
			link.DestPage = e.resolveDest(annot.Lookup("Dest"))
		}
		links = append(links, link)
	}
	return links, nil
}

func (e *Extractor) resolveDest(dest raw.Object) int {
	arr := raw.DerefArray(e.src, dest)
	if arr == nil || arr.Len() == 0 {
		return -1
	}
	if ref, ok := arr.At(0).(raw.Ref); ok {
		if idx, ok := e.pageIndexByObjNum(ref.R.Num); ok {
			return idx
		}
	}
	if n, ok := raw.AsInt(arr.At(0)); ok && int(n) >= 0 && int(n) < len(e.pages) {
		return int(n)
	}
	return -1
}
