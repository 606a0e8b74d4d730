package extractor

import (
	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/strutil"
)

// OutlineItem is one bookmark: title, resolved page index (-1 when
// the destination does not resolve), nesting level from 0.
type OutlineItem struct {
	Title string
	Page  int
	Level int
}

const maxOutlineDepth = 64

// Outline walks /Outlines First/Next in document order.
func (e *Extractor) Outline() []OutlineItem {
	root := raw.DerefDict(e.src, lookupIn(e.catalog, "Outlines"))
	if root == nil {
		return nil
	}
	var out []OutlineItem
	visited := make(map[raw.ObjectRef]bool)
	e.walkOutline(root.Lookup("First"), 0, visited, &out)
	return out
}

func (e *Extractor) walkOutline(obj raw.Object, level int, visited map[raw.ObjectRef]bool, out *[]OutlineItem) {
	if level > maxOutlineDepth {
		return
	}
	for obj != nil {
		if ref, ok := obj.(raw.Ref); ok {
			if visited[ref.R] {
				return
			}
			visited[ref.R] = true
		}
		item := raw.DerefDict(e.src, obj)
		if item == nil {
			return
		}
		title := ""
		if b, ok := raw.DictString(e.src, item, "Title"); ok {
			title = strutil.DecodeTextString(b)
		}
		*out = append(*out, OutlineItem{
			Title: title,
			Page:  e.destPage(item),
			Level: level,
		})
		if first, ok := item.Get("First"); ok {
			e.walkOutline(first, level+1, visited, out)
		}
		next, ok := item.Get("Next")
		if !ok {
			return
		}
		obj = next
	}
}

// destPage resolves an item's /Dest (or /A action /D) to a page
// index. Only explicit destination arrays resolve; named
// destinations yield -1.
func (e *Extractor) destPage(item *raw.Dict) int {
	dest := item.Lookup("Dest")
	if dest.Kind() == raw.KindNull {
		if action := raw.DerefDict(e.src, item.Lookup("A")); action != nil {
			dest = action.Lookup("D")
		}
	}
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
