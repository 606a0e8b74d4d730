// Package scanner tokenizes PDF syntax out of an in-memory byte
// window. The same scanner serves file-level objects and content
// streams; stream payloads and inline-image bodies are skipped as
// opaque byte runs, never tokenized.
package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/Lulzx/zpdf/recovery"
)

type TokenType int

const (
	TokenDict        TokenType = iota // '<<'
	TokenDictEnd                      // '>>'
	TokenArray                        // '['
	TokenArrayEnd                     // ']'
	TokenName                         // '/Name'
	TokenString                       // literal or hex string
	TokenNumber                       // numeric value
	TokenBoolean                      // true/false
	TokenNull                         // null
	TokenRef                          // indirect ref '5 0 R'
	TokenStream                       // stream payload
	TokenInlineImage                  // raw bytes between ID and EI
	TokenKeyword                      // obj, endobj, operators, etc.
)

type Token struct {
	Type  TokenType
	Pos   int64
	Str   string  // names and keywords
	Bytes []byte  // strings, stream payloads, inline images
	Int   int64   // integer numbers
	Float float64 // real numbers
	IsInt bool
	Num   int // indirect reference components
	Gen   int
	Hex   bool // string came from <...> syntax
}

type Config struct {
	MaxStringLength int64
	MaxInlineImage  int64
	Recovery        recovery.Strategy
}

// Scanner walks a byte window producing tokens. The window is never
// copied or mutated; string payloads are decoded into fresh buffers.
type Scanner struct {
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
	recLoc        recovery.Location
}

func New(data []byte, cfg Config) *Scanner {
	return &Scanner{data: data, cfg: cfg, nextStreamLen: -1}
}

func (s *Scanner) Position() int64 { return s.pos }

func (s *Scanner) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

// SetNextStreamLength tells the scanner how many payload bytes the
// next 'stream' keyword owns (resolved /Length). Negative means
// unknown; the scanner then searches for endstream.
func (s *Scanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *Scanner) SetLocation(loc recovery.Location) { s.recLoc = loc }

func (s *Scanner) Next() (Token, error) {
	s.skipWSAndComments()
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peek(1) == '>' {
			s.pos += 2
			return Token{Type: TokenDictEnd, Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Pos: start, Str: ">"}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenArrayEnd, Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumberOrRef()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Pos: start, Str: string(c)}, nil
}

func (s *Scanner) skipWSAndComments() {
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if IsWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < int64(len(s.data)) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *Scanner) peek(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // '/'
	var out []byte
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if IsDelimiter(c) || IsWhitespace(c) {
			break
		}
		if c == '#' && s.pos+2 < int64(len(s.data)) && isHexDigit(s.data[s.pos+1]) && isHexDigit(s.data[s.pos+2]) {
			out = append(out, fromHex(s.data[s.pos+1])<<4|fromHex(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		out = append(out, c)
		s.pos++
	}
	return Token{Type: TokenName, Pos: start, Str: string(out)}, nil
}

func (s *Scanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // '('
	var buf []byte
	depth := 1
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '\\' {
			s.pos++
			if s.pos >= int64(len(s.data)) {
				break
			}
			esc := s.data[s.pos]
			switch {
			case esc == '\r':
				// line continuation, swallow optional LF
				s.pos++
				if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
				s.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < int64(len(s.data)); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf = append(buf, byte(val))
			default:
				buf = append(buf, translateEscape(esc))
				s.pos++
			}
			continue
		}
		if c == '(' {
			depth++
			buf = append(buf, c)
			s.pos++
			continue
		}
		if c == ')' {
			depth--
			s.pos++
			if depth == 0 {
				if s.cfg.MaxStringLength > 0 && int64(len(buf)) > s.cfg.MaxStringLength {
					return Token{}, s.recover(errors.New("literal string too long"), "string")
				}
				return Token{Type: TokenString, Pos: start, Bytes: buf}, nil
			}
			buf = append(buf, ')')
			continue
		}
		buf = append(buf, c)
		s.pos++
	}
	if err := s.recover(errors.New("unterminated literal string"), "string"); err != nil {
		return Token{}, err
	}
	return Token{Type: TokenString, Pos: start, Bytes: buf}, nil
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	var nibbles []byte
	closed := false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '>' {
			s.pos++
			closed = true
			break
		}
		if IsWhitespace(c) {
			s.pos++
			continue
		}
		if !isHexDigit(c) {
			s.pos++
			if err := s.recover(errors.New("bad hex digit"), "string"); err != nil {
				return Token{}, err
			}
			continue
		}
		nibbles = append(nibbles, c)
		s.pos++
	}
	if !closed {
		if err := s.recover(errors.New("unterminated hex string"), "string"); err != nil {
			return Token{}, err
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	out := make([]byte, 0, len(nibbles)/2)
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, fromHex(nibbles[i])<<4|fromHex(nibbles[i+1]))
	}
	return Token{Type: TokenString, Pos: start, Bytes: out, Hex: true}, nil
}

func (s *Scanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	first, ok := s.scanNumberLiteral()
	if !ok {
		s.pos = start
		s.pos++
		return Token{}, s.recover(errors.New("bad number"), "number")
	}
	if first.IsInt && first.Int >= 0 {
		// N G R lookahead: two non-negative integers followed by a
		// lone R make an indirect reference.
		save := s.pos
		s.skipWSAndComments()
		second, ok2 := s.scanNumberLiteral()
		if ok2 && second.IsInt && second.Int >= 0 {
			s.skipWSAndComments()
			if s.pos < int64(len(s.data)) && s.data[s.pos] == 'R' {
				next := s.pos + 1
				if next >= int64(len(s.data)) || IsWhitespace(s.data[next]) || IsDelimiter(s.data[next]) {
					s.pos = next
					return Token{Type: TokenRef, Pos: start, Num: int(first.Int), Gen: int(second.Int)}, nil
				}
			}
		}
		s.pos = save
	}
	first.Pos = start
	return first, nil
}

// scanNumberLiteral consumes one number at the current position.
func (s *Scanner) scanNumberLiteral() (Token, bool) {
	start := s.pos
	seenDigit, seenDot := false, false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c >= '0' && c <= '9' {
			seenDigit = true
			s.pos++
			continue
		}
		if (c == '+' || c == '-') && s.pos == start {
			s.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			s.pos++
			continue
		}
		break
	}
	if !seenDigit {
		s.pos = start
		return Token{}, false
	}
	text := string(s.data[start:s.pos])
	if !seenDot {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Token{Type: TokenNumber, Pos: start, Int: i, IsInt: true}, true
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		s.pos = start
		return Token{}, false
	}
	return Token{Type: TokenNumber, Pos: start, Float: f}, true
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if IsDelimiter(c) || IsWhitespace(c) {
			break
		}
		s.pos++
	}
	kw := string(s.data[start:s.pos])
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Pos: start, Int: boolInt(kw == "true"), Str: kw}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	case "ID":
		return s.scanInlineImage(start)
	}
	return Token{Type: TokenKeyword, Pos: start, Str: kw}, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// scanStream consumes the payload after a 'stream' keyword. With a
// known length the payload is sliced directly; otherwise the scanner
// searches for a boundary-checked 'endstream'.
func (s *Scanner) scanStream(start int64) (Token, error) {
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
	dataStart := s.pos
	length := s.nextStreamLen
	s.nextStreamLen = -1

	if length >= 0 {
		end := dataStart + length
		if end > int64(len(s.data)) {
			if err := s.recover(errors.New("stream ended before declared length"), "stream"); err != nil {
				return Token{}, err
			}
			end = int64(len(s.data))
		}
		payload := s.data[dataStart:end]
		s.pos = end
		// tolerate EOL then expect endstream; re-sync by search when
		// /Length was wrong
		s.skipWSAndComments()
		needle := []byte("endstream")
		if int64(len(s.data))-s.pos >= int64(len(needle)) && bytes.Equal(s.data[s.pos:s.pos+int64(len(needle))], needle) {
			s.pos += int64(len(needle))
		} else if idx := bytes.Index(s.data[dataStart:], needle); idx >= 0 {
			if err := s.recover(errors.New("endstream not at declared length"), "stream"); err != nil {
				return Token{}, err
			}
			payload = trimStreamEOL(s.data[dataStart : dataStart+int64(idx)])
			s.pos = dataStart + int64(idx) + int64(len(needle))
		} else if err := s.recover(errors.New("endstream not found"), "stream"); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenStream, Pos: start, Bytes: payload}, nil
	}

	idx := findEndstream(s.data, dataStart)
	if idx < 0 {
		if err := s.recover(errors.New("endstream not found"), "stream"); err != nil {
			return Token{}, err
		}
		payload := s.data[dataStart:]
		s.pos = int64(len(s.data))
		return Token{Type: TokenStream, Pos: start, Bytes: payload}, nil
	}
	payload := trimStreamEOL(s.data[dataStart:idx])
	s.pos = idx + int64(len("endstream"))
	return Token{Type: TokenStream, Pos: start, Bytes: payload}, nil
}

func findEndstream(data []byte, from int64) int64 {
	needle := []byte("endstream")
	for i := from; ; {
		rel := bytes.Index(data[i:], needle)
		if rel < 0 {
			return -1
		}
		at := i + int64(rel)
		afterOK := at+int64(len(needle)) >= int64(len(data)) ||
			IsWhitespace(data[at+int64(len(needle))]) || IsDelimiter(data[at+int64(len(needle))])
		beforeOK := at == from || IsWhitespace(data[at-1])
		if afterOK && beforeOK {
			return at
		}
		i = at + 1
	}
}

func trimStreamEOL(payload []byte) []byte {
	if n := len(payload); n > 0 && payload[n-1] == '\n' {
		payload = payload[:n-1]
	}
	if n := len(payload); n > 0 && payload[n-1] == '\r' {
		payload = payload[:n-1]
	}
	return payload
}

// scanInlineImage skips the raw bytes between ID and a
// whitespace-preceded EI. The body is arbitrary binary and is never
// tokenized; an EI substring without a whitespace boundary before it
// does not terminate the image.
func (s *Scanner) scanInlineImage(start int64) (Token, error) {
	if s.pos < int64(len(s.data)) && IsWhitespace(s.data[s.pos]) {
		s.pos++
	}
	dataStart := s.pos
	for s.pos+1 < int64(len(s.data)) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' &&
			s.pos > dataStart && IsWhitespace(s.data[s.pos-1]) {
			afterOK := s.pos+2 >= int64(len(s.data)) ||
				IsWhitespace(s.data[s.pos+2]) || IsDelimiter(s.data[s.pos+2])
			if afterOK {
				payload := s.data[dataStart : s.pos-1]
				if s.cfg.MaxInlineImage > 0 && int64(len(payload)) > s.cfg.MaxInlineImage {
					return Token{}, s.recover(errors.New("inline image too long"), "inline_image")
				}
				s.pos += 2
				return Token{Type: TokenInlineImage, Pos: start, Bytes: payload}, nil
			}
		}
		s.pos++
	}
	s.pos = int64(len(s.data))
	if err := s.recover(errors.New("unterminated inline image"), "inline_image"); err != nil {
		return Token{}, err
	}
	return Token{Type: TokenInlineImage, Pos: start, Bytes: s.data[dataStart:]}, nil
}

func (s *Scanner) recover(err error, component string) error {
	if s.cfg.Recovery == nil {
		return err
	}
	loc := s.recLoc
	loc.ByteOffset = s.pos
	if loc.Component != "" {
		loc.Component += "->"
	}
	loc.Component += "scanner:" + component
	switch s.cfg.Recovery.OnError(err, loc) {
	case recovery.ActionSkip, recovery.ActionWarn:
		return nil
	default:
		return err
	}
}

// Byte classification per the PDF grammar.

func IsWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func IsDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !IsWhitespace(c) && !IsDelimiter(c) }

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	}
	return c
}
