// Package filters decodes PDF stream payloads. A Pipeline composes
// the stages named by /Filter left to right, feeding each stage the
// matching /DecodeParms entry.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"errors"
	"fmt"
	"io"

	"github.com/Lulzx/zpdf/raw"
)

// Decoder is a single filter stage.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params *raw.Dict) ([]byte, error)
}

type Limits struct {
	MaxDecompressedSize int64
}

var ErrUnknownFilter = errors.New("unknown filter")

// ErrNotDecoded marks image codecs that are recognized but left raw;
// the stream dictionary stays readable, the payload does not.
var ErrNotDecoded = errors.New("filter not decoded")

type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

// NewPipeline returns a pipeline with the standard text-path stages
// registered.
func NewPipeline(limits Limits) *Pipeline {
	p := &Pipeline{decoders: make(map[string]Decoder), limits: limits}
	for _, d := range []Decoder{
		flateDecoder{},
		lzwDecoder{},
		ascii85Decoder{},
		asciiHexDecoder{},
		runLengthDecoder{},
	} {
		p.Register(d)
	}
	return p
}

func (p *Pipeline) Register(d Decoder) { p.decoders[d.Name()] = d }

// DecodeStream applies the stream dictionary's filter chain to the
// payload. g resolves indirect /Filter and /DecodeParms entries.
func (p *Pipeline) DecodeStream(ctx context.Context, g raw.Getter, st *raw.Stream) ([]byte, error) {
	names, params := FilterChain(g, st.Dict)
	return p.Decode(ctx, st.Data, names, params)
}

func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []*raw.Dict) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		switch name {
		case "DCTDecode", "CCITTFaxDecode", "JBIG2Decode", "JPXDecode":
			return data, fmt.Errorf("%w: %s", ErrNotDecoded, name)
		}
		dec, ok := p.decoders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		var param *raw.Dict
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, errors.New("decompressed size exceeds limit")
		}
		data = out
	}
	return data, nil
}

// FilterChain extracts the filter names and aligned parameter dicts
// from a stream dictionary. /Filter may be a name or array; /DP is
// accepted as the abbreviation for /DecodeParms.
func FilterChain(g raw.Getter, dict *raw.Dict) ([]string, []*raw.Dict) {
	if dict == nil {
		return nil, nil
	}
	var names []string
	switch v := raw.Deref(g, dict.Lookup("Filter")).(type) {
	case raw.Name:
		names = []string{v.V}
	case *raw.Array:
		for _, item := range v.Items {
			if n, ok := raw.AsName(raw.Deref(g, item)); ok {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	params := make([]*raw.Dict, len(names))
	parmObj := dict.Lookup("DecodeParms")
	if _, ok := parmObj.(raw.Null); ok {
		parmObj = dict.Lookup("DP")
	}
	switch v := raw.Deref(g, parmObj).(type) {
	case *raw.Dict:
		params[0] = v
	case *raw.Array:
		for i := 0; i < len(names) && i < v.Len(); i++ {
			params[i] = raw.DerefDict(g, v.At(i))
		}
	}
	return names, params
}

func paramInt(params *raw.Dict, key string, def int) int {
	if params == nil {
		return def
	}
	if n, ok := raw.AsInt(params.Lookup(key)); ok {
		return int(n)
	}
	return def
}

// FlateDecode: zlib with a raw-deflate fallback for writers that omit
// the zlib header, then optional predictor post-processing.
type flateDecoder struct{}

func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	var out bytes.Buffer
	if err == nil {
		_, err = io.Copy(&out, zr)
		zr.Close()
	}
	if err != nil {
		out.Reset()
		fr := flate.NewReader(bytes.NewReader(in))
		if _, ferr := io.Copy(&out, fr); ferr != nil {
			fr.Close()
			return nil, err
		}
		fr.Close()
	}
	return applyPredictor(out.Bytes(), params)
}

// ASCII85Decode: '~>' terminated, 'z' groups, partial groups padded
// with 'u'.
type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, stdascii85.MaxEncodedLen(len(trimmed)))
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// ASCIIHexDecode: '>' terminated, whitespace skipped, odd trailing
// nibble followed by an implied zero.
type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	var nibbles []byte
	for _, c := range in {
		if c == '>' {
			break
		}
		switch {
		case c >= '0' && c <= '9':
			nibbles = append(nibbles, c-'0')
		case c >= 'A' && c <= 'F':
			nibbles = append(nibbles, c-'A'+10)
		case c >= 'a' && c <= 'f':
			nibbles = append(nibbles, c-'a'+10)
		case c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20:
		default:
			return nil, fmt.Errorf("bad hex byte %#x", c)
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0)
	}
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return out, nil
}

// RunLengthDecode: length byte n, 0..127 copies n+1 literals,
// 129..255 repeats the next byte 257-n times, 128 ends the data.
type runLengthDecoder struct{}

func (runLengthDecoder) Name() string { return "RunLengthDecode" }

func (runLengthDecoder) Decode(ctx context.Context, in []byte, params *raw.Dict) ([]byte, error) {
	var out []byte
	for i := 0; i < len(in); {
		n := in[i]
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			count := int(n) + 1
			if i+count > len(in) {
				return nil, errors.New("truncated literal run")
			}
			out = append(out, in[i:i+count]...)
			i += count
		default:
			if i >= len(in) {
				return nil, errors.New("truncated repeat run")
			}
			count := 257 - int(n)
			for k := 0; k < count; k++ {
				out = append(out, in[i])
			}
			i++
		}
	}
	return out, nil
}
