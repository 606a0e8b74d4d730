// Package recovery collects parse errors and decides, per configured
// policy, whether a malformed construct aborts the operation or is
// recorded and skipped.
package recovery

import (
	"errors"
	"fmt"
)

// Kind classifies an error record.
type Kind int

const (
	KindInvalidHeader Kind = iota
	KindInvalidXRef
	KindMissingObject
	KindInvalidStream
	KindEncodingError
	KindSyntaxError
	KindEncrypted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidHeader:
		return "invalid_header"
	case KindInvalidXRef:
		return "invalid_xref"
	case KindMissingObject:
		return "missing_object"
	case KindInvalidStream:
		return "invalid_stream"
	case KindEncodingError:
		return "encoding_error"
	case KindSyntaxError:
		return "syntax_error"
	case KindEncrypted:
		return "encrypted"
	}
	return "unknown"
}

// Record is one collected error.
type Record struct {
	Kind    Kind
	Offset  int64
	Message string
}

func (r Record) String() string {
	return fmt.Sprintf("%s at %d: %s", r.Kind, r.Offset, r.Message)
}

// Policy selects how the sink reacts to reported errors.
type Policy int

const (
	// PolicyDefault records up to MaxDefaultErrors and keeps going.
	PolicyDefault Policy = iota
	// PolicyStrict fails on the first reported error.
	PolicyStrict
	// PolicyPermissive records without bound and never fails.
	PolicyPermissive
)

// MaxDefaultErrors is the record cap under PolicyDefault. Reaching it
// upgrades further reports to fatal.
const MaxDefaultErrors = 100

// Location identifies where in the document an error was observed.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

// Action is a strategy's verdict for a single error.
type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionWarn
)

// Strategy decides how a single mid-parse error is handled. Sink is
// the standard implementation; tests substitute their own.
type Strategy interface {
	OnError(err error, location Location) Action
}

// ErrTooManyErrors is returned once the sink's record cap is hit.
var ErrTooManyErrors = errors.New("error limit reached")

// ErrStrict wraps the first error under PolicyStrict.
var ErrStrict = errors.New("strict mode")

// Sink is the policy-driven error collector owned by a Document.
type Sink struct {
	policy  Policy
	records []Record
}

func NewSink(policy Policy) *Sink {
	return &Sink{policy: policy}
}

func (s *Sink) Policy() Policy { return s.policy }

// Report records one error. A non-nil return means the operation must
// abort: strict mode always, default mode once the cap is reached.
func (s *Sink) Report(kind Kind, offset int64, message string) error {
	if s.policy == PolicyStrict {
		return fmt.Errorf("%w: %s at %d: %s", ErrStrict, kind, offset, message)
	}
	if s.policy == PolicyDefault && len(s.records) >= MaxDefaultErrors {
		return fmt.Errorf("%w (%d)", ErrTooManyErrors, len(s.records))
	}
	s.records = append(s.records, Record{Kind: kind, Offset: offset, Message: message})
	return nil
}

// OnError implements Strategy for the scanner and parser hooks.
func (s *Sink) OnError(err error, loc Location) Action {
	kind := KindSyntaxError
	if loc.Component != "" {
		switch loc.Component {
		case "xref":
			kind = KindInvalidXRef
		case "stream", "filters":
			kind = KindInvalidStream
		}
	}
	if rerr := s.Report(kind, loc.ByteOffset, err.Error()); rerr != nil {
		return ActionFail
	}
	return ActionSkip
}

// Records returns a copy of the collected records.
func (s *Sink) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Sink) Len() int { return len(s.records) }
