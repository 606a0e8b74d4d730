package extractor

import "github.com/Lulzx/zpdf/contentstream"

// PageImages reports image placements on one page: CTM-mapped
// rectangles and declared pixel dimensions. Pixel data is never
// decoded.
func (e *Extractor) PageImages(page int) ([]contentstream.ImagePlacement, error) {
	p, err := e.Page(page)
	if err != nil {
		return nil, err
	}
	return contentstream.ExtractImages(e.src, p.Resources, p.Contents, e.sink)
}
