package filters

import (
	"context"
	"errors"

	"github.com/Lulzx/zpdf/raw"
)

// lzwDecoder decodes PDF LZW: MSB-first variable-width codes from 9
// to 12 bits, clear code 256, EOD 257. The stdlib reader cannot model
// /EarlyChange (the code width bumps one entry early by default), so
// the table is unrolled here.
type lzwDecoder struct{}

func (lzwDecoder) Name() string { return "LZWDecode" }

const (
	lzwClear = 256
	lzwEOD   = 257
	lzwFirst = 258
	lzwMax   = 1 << 12
)

func (lzwDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	early := paramInt(params, "EarlyChange", 1)
	if early != 0 {
		early = 1
	}
	out, err := lzwDecode(in, early)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}

func lzwDecode(in []byte, early int) ([]byte, error) {
	table := make([][]byte, lzwFirst, lzwMax)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	var (
		out      []byte
		prev     []byte
		width    = 9
		bitBuf   uint32
		bitCount uint
		pos      int
	)
	readCode := func() (int, bool) {
		for bitCount < uint(width) {
			if pos >= len(in) {
				return 0, false
			}
			bitBuf = bitBuf<<8 | uint32(in[pos])
			bitCount += 8
			pos++
		}
		bitCount -= uint(width)
		code := int(bitBuf >> bitCount)
		bitBuf &= (1 << bitCount) - 1
		return code, true
	}
	for {
		code, ok := readCode()
		if !ok {
			return out, nil
		}
		switch {
		case code == lzwEOD:
			return out, nil
		case code == lzwClear:
			table = table[:lzwFirst]
			width = 9
			prev = nil
			continue
		case code < len(table):
			entry := table[code]
			out = append(out, entry...)
			if prev != nil {
				next := make([]byte, 0, len(prev)+1)
				next = append(next, prev...)
				next = append(next, entry[0])
				table = append(table, next)
			}
			prev = entry
		case code == len(table) && prev != nil:
			// KwKwK case: the new entry is prev + prev[0].
			next := make([]byte, 0, len(prev)+1)
			next = append(next, prev...)
			next = append(next, prev[0])
			table = append(table, next)
			out = append(out, next...)
			prev = next
		default:
			return nil, errors.New("code out of range")
		}
		if len(table)+early >= 1<<width && width < 12 {
			width++
		}
		if len(table) >= lzwMax {
			return nil, errors.New("table overflow without clear code")
		}
	}
}
