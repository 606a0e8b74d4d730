// Package parser turns scanner tokens into raw objects by recursive
// descent. It is deliberately free of cross-reference knowledge; the
// xref package layers object resolution on top of it.
package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/recovery"
	"github.com/Lulzx/zpdf/scanner"
)

var (
	ErrUnexpectedEOF = errors.New("unexpected end of input")
	ErrSyntax        = errors.New("invalid syntax")
)

// LengthResolver resolves an indirect /Length before a stream body is
// consumed.
type LengthResolver func(ref raw.ObjectRef) (int64, bool)

// Reader wraps a scanner with one-token pushback and object parsing.
type Reader struct {
	sc     *scanner.Scanner
	buf    []scanner.Token
	rec    recovery.Strategy
	lenRes LengthResolver
}

func NewReader(sc *scanner.Scanner, rec recovery.Strategy) *Reader {
	return &Reader{sc: sc, rec: rec}
}

// NewBytesReader is a convenience for parsing a standalone fragment.
func NewBytesReader(data []byte, rec recovery.Strategy) *Reader {
	return NewReader(scanner.New(data, scanner.Config{Recovery: rec}), rec)
}

func (r *Reader) SetLengthResolver(fn LengthResolver) { r.lenRes = fn }

func (r *Reader) Scanner() *scanner.Scanner { return r.sc }

func (r *Reader) Next() (scanner.Token, error) {
	if n := len(r.buf); n > 0 {
		tok := r.buf[n-1]
		r.buf = r.buf[:n-1]
		return tok, nil
	}
	return r.sc.Next()
}

func (r *Reader) Unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

// ParseObject parses one object at the current position. A dictionary
// followed by the stream keyword becomes a raw.Stream whose length is
// taken from /Length, resolving it through the LengthResolver when
// indirect.
func (r *Reader) ParseObject() (raw.Object, error) {
	tok, err := r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: object expected", ErrUnexpectedEOF)
		}
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenNull:
		return raw.Null{}, nil
	case scanner.TokenBoolean:
		return raw.Bool{V: tok.Int != 0}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.Integer{V: tok.Int}, nil
		}
		return raw.Real{V: tok.Float}, nil
	case scanner.TokenName:
		return raw.Name{V: tok.Str}, nil
	case scanner.TokenString:
		return raw.String{V: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenRef:
		return raw.Ref{R: raw.ObjectRef{Num: tok.Num, Gen: tok.Gen}}, nil
	case scanner.TokenArray:
		return r.parseArray()
	case scanner.TokenDict:
		return r.parseDict()
	}
	return nil, fmt.Errorf("%w: unexpected token %q at %d", ErrSyntax, tok.Str, tok.Pos)
}

func (r *Reader) parseArray() (raw.Object, error) {
	arr := &raw.Array{}
	for {
		tok, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return r.closeEarly(arr, fmt.Errorf("%w: unterminated array", ErrUnexpectedEOF))
			}
			return nil, err
		}
		if tok.Type == scanner.TokenArrayEnd {
			return arr, nil
		}
		r.Unread(tok)
		item, err := r.ParseObject()
		if err != nil {
			return r.closeEarly(arr, err)
		}
		arr.Append(item)
	}
}

func (r *Reader) parseDict() (raw.Object, error) {
	d := raw.NewDict()
	for {
		tok, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return r.finishDict(d, fmt.Errorf("%w: unterminated dictionary", ErrUnexpectedEOF))
			}
			return nil, err
		}
		if tok.Type == scanner.TokenDictEnd {
			break
		}
		if tok.Type != scanner.TokenName {
			return r.finishDict(d, fmt.Errorf("%w: dictionary key must be a name, got token at %d", ErrSyntax, tok.Pos))
		}
		key := tok.Str
		val, err := r.ParseObject()
		if err != nil {
			return r.finishDict(d, err)
		}
		d.Set(key, val)
	}
	return r.maybeStream(d)
}

// maybeStream checks whether the dictionary just closed introduces a
// stream body.
func (r *Reader) maybeStream(d *raw.Dict) (raw.Object, error) {
	length := int64(-1)
	if obj, ok := d.Get("Length"); ok {
		switch v := obj.(type) {
		case raw.Integer:
			length = v.V
		case raw.Ref:
			if r.lenRes != nil {
				if n, ok := r.lenRes(v.R); ok {
					length = n
				}
			}
		}
	}
	r.sc.SetNextStreamLength(length)
	tok, err := r.Next()
	if err != nil {
		r.sc.SetNextStreamLength(-1)
		if errors.Is(err, io.EOF) {
			return d, nil
		}
		return nil, err
	}
	if tok.Type != scanner.TokenStream {
		r.sc.SetNextStreamLength(-1)
		r.Unread(tok)
		return d, nil
	}
	return &raw.Stream{Dict: d, Data: tok.Bytes, RawOffset: tok.Pos}, nil
}

// closeEarly implements the permissive container rule: an error
// inside an array closes it at the failure point and records the
// error; strict strategies still fail.
func (r *Reader) closeEarly(arr *raw.Array, err error) (raw.Object, error) {
	if r.allow(err) {
		return arr, nil
	}
	return nil, err
}

func (r *Reader) finishDict(d *raw.Dict, err error) (raw.Object, error) {
	if err == nil {
		return d, nil
	}
	if r.allow(err) {
		return d, nil
	}
	return nil, err
}

func (r *Reader) allow(err error) bool {
	if r.rec == nil {
		return false
	}
	loc := recovery.Location{ByteOffset: r.sc.Position(), Component: "parser"}
	switch r.rec.OnError(err, loc) {
	case recovery.ActionSkip, recovery.ActionWarn:
		return true
	}
	return false
}

// ParseIndirect parses 'num gen obj <object> endobj' at the current
// position and returns the declared reference with its object.
func (r *Reader) ParseIndirect() (raw.ObjectRef, raw.Object, error) {
	numTok, err := r.Next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	genTok, err := r.Next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	objTok, err := r.Next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	if numTok.Type != scanner.TokenNumber || !numTok.IsInt ||
		genTok.Type != scanner.TokenNumber || !genTok.IsInt ||
		objTok.Type != scanner.TokenKeyword || objTok.Str != "obj" {
		return raw.ObjectRef{}, nil, fmt.Errorf("%w: indirect object header expected at %d", ErrSyntax, numTok.Pos)
	}
	ref := raw.ObjectRef{Num: int(numTok.Int), Gen: int(genTok.Int)}
	obj, err := r.ParseObject()
	if err != nil {
		return ref, nil, err
	}
	end, err := r.Next()
	if err == nil && !(end.Type == scanner.TokenKeyword && end.Str == "endobj") {
		// Tolerated: some writers omit endobj before the next header.
		r.Unread(end)
	}
	return ref, obj, nil
}
