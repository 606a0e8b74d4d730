package recovery

import (
	"errors"
	"testing"
)

func TestStrictFailsImmediately(t *testing.T) {
	s := NewSink(PolicyStrict)
	if err := s.Report(KindSyntaxError, 10, "boom"); err == nil {
		t.Fatal("want error")
	}
	if s.Len() != 0 {
		t.Fatalf("records %d", s.Len())
	}
}

func TestDefaultCapsRecords(t *testing.T) {
	s := NewSink(PolicyDefault)
	for i := 0; i < MaxDefaultErrors; i++ {
		if err := s.Report(KindSyntaxError, int64(i), "x"); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}
	err := s.Report(KindSyntaxError, 0, "over")
	if !errors.Is(err, ErrTooManyErrors) {
		t.Fatalf("got %v", err)
	}
	if s.Len() != MaxDefaultErrors {
		t.Fatalf("records %d", s.Len())
	}
}

func TestPermissiveUnbounded(t *testing.T) {
	s := NewSink(PolicyPermissive)
	for i := 0; i < MaxDefaultErrors+50; i++ {
		if err := s.Report(KindMissingObject, 0, "x"); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	if s.Len() != MaxDefaultErrors+50 {
		t.Fatalf("records %d", s.Len())
	}
}

func TestKindStrings(t *testing.T) {
	kinds := map[Kind]string{
		KindInvalidHeader: "invalid_header",
		KindInvalidXRef:   "invalid_xref",
		KindMissingObject: "missing_object",
		KindInvalidStream: "invalid_stream",
		KindEncodingError: "encoding_error",
		KindSyntaxError:   "syntax_error",
		KindEncrypted:     "encrypted",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d: %s", k, k.String())
		}
	}
}

func TestOnErrorImplementsStrategy(t *testing.T) {
	var _ Strategy = NewSink(PolicyDefault)
	s := NewSink(PolicyDefault)
	if got := s.OnError(errors.New("x"), Location{Component: "xref"}); got != ActionSkip {
		t.Fatalf("action %v", got)
	}
	if s.Records()[0].Kind != KindInvalidXRef {
		t.Fatalf("kind %v", s.Records()[0].Kind)
	}
	strict := NewSink(PolicyStrict)
	if got := strict.OnError(errors.New("x"), Location{}); got != ActionFail {
		t.Fatalf("action %v", got)
	}
}
