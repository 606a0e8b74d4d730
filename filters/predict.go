package filters

import (
	"errors"
	"fmt"

	"github.com/Lulzx/zpdf/raw"
)

// applyPredictor post-processes Flate/LZW output per /Predictor.
// 1 (or absent) is a no-op, 2 is TIFF horizontal differencing, and
// values >= 10 select the PNG row filters.
func applyPredictor(data []byte, params *raw.Dict) ([]byte, error) {
	predictor := paramInt(params, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := paramInt(params, "Colors", 1)
	bpc := paramInt(params, "BitsPerComponent", 8)
	columns := paramInt(params, "Columns", 1)
	if colors < 1 || bpc < 1 || columns < 1 {
		return nil, fmt.Errorf("bad predictor parameters: colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8
	if predictor == 2 {
		return applyTIFFPredictor(data, colors, bpc, rowLen)
	}
	if predictor >= 10 {
		return applyPNGPredictor(data, bpp, rowLen)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

// applyPNGPredictor undoes the per-row PNG filters. Each input row is
// one filter-type byte followed by rowLen filtered bytes; the decoded
// previous row feeds Up/Average/Paeth.
func applyPNGPredictor(data []byte, bpp, rowLen int) ([]byte, error) {
	if len(data)%(rowLen+1) != 0 {
		return nil, errors.New("predictor data not a whole number of rows")
	}
	rows := len(data) / (rowLen + 1)
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		row := data[r*(rowLen+1):]
		filter := row[0]
		copy(cur, row[1:rowLen+1])
		switch filter {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] += paethPredictor(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("bad PNG filter type %d", filter)
		}
		out = append(out, cur...)
		copy(prev, cur)
	}
	return out, nil
}

func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func applyTIFFPredictor(data []byte, colors, bpc, rowLen int) ([]byte, error) {
	if bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor supports 8 bits per component, got %d", bpc)
	}
	if rowLen == 0 || len(data)%rowLen != 0 {
		return nil, errors.New("predictor data not a whole number of rows")
	}
	out := make([]byte, len(data))
	copy(out, data)
	for r := 0; r < len(out); r += rowLen {
		row := out[r : r+rowLen]
		for i := colors; i < rowLen; i++ {
			row[i] += row[i-colors]
		}
	}
	return out, nil
}
