package fonts

import "github.com/Lulzx/zpdf/raw"

// Cache shares one authoritative encoding per font object across
// every page that references it. Per-page views are memoized by page
// index; both maps live for the document lifetime and the first
// build wins.
type Cache struct {
	src    Source
	byObj  map[int]*Encoding
	byPage map[int]map[string]*Encoding
}

func NewCache(src Source) *Cache {
	return &Cache{
		src:    src,
		byObj:  make(map[int]*Encoding),
		byPage: make(map[int]map[string]*Encoding),
	}
}

// PageFonts returns the name→encoding view for one page's resource
// dictionary. Subsequent calls for the same page index are no-ops.
func (c *Cache) PageFonts(pageIndex int, resources *raw.Dict) map[string]*Encoding {
	if view, ok := c.byPage[pageIndex]; ok {
		return view
	}
	view := c.buildView(resources)
	c.byPage[pageIndex] = view
	return view
}

// ResourceFonts builds an uncached view, used for Form XObject
// resource dictionaries whose lifetime is one interpreter frame.
func (c *Cache) ResourceFonts(resources *raw.Dict) map[string]*Encoding {
	return c.buildView(resources)
}

func (c *Cache) buildView(resources *raw.Dict) map[string]*Encoding {
	view := make(map[string]*Encoding)
	if resources == nil {
		return view
	}
	fontsDict := raw.DerefDict(c.src, resources.Lookup("Font"))
	if fontsDict == nil {
		return view
	}
	for _, name := range fontsDict.Keys() {
		obj, _ := fontsDict.Get(name)
		if enc := c.encodingFor(obj); enc != nil {
			view[name] = enc
		}
	}
	return view
}

// encodingFor resolves one font object, caching by object number so
// fonts shared between pages are built once.
func (c *Cache) encodingFor(obj raw.Object) *Encoding {
	if ref, ok := obj.(raw.Ref); ok {
		if enc, ok := c.byObj[ref.R.Num]; ok {
			return enc
		}
		dict := raw.DerefDict(c.src, obj)
		if dict == nil {
			return nil
		}
		enc := Build(c.src, dict)
		c.byObj[ref.R.Num] = enc
		return enc
	}
	dict := raw.DerefDict(c.src, obj)
	if dict == nil {
		return nil
	}
	return Build(c.src, dict)
}
