package result

import (
	"errors"
	"testing"
)

func TestResultKinds(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.Value() != 42 {
		t.Fatalf("unexpected ok result: %+v", ok)
	}
	if ok.Kind() != KindOk || ok.Err() != nil {
		t.Fatalf("unexpected ok kind: %s %v", ok.Kind(), ok.Err())
	}

	skip := Skip[int]("page %d empty", 3)
	if !skip.IsSkip() || skip.Reason() != "page 3 empty" {
		t.Fatalf("unexpected skip result: %+v", skip)
	}
	if skip.Kind() != KindSkip || skip.Value() != 0 {
		t.Fatalf("skip must carry no value: %+v", skip)
	}

	boom := errors.New("boom")
	fatal := Fatal[string](boom)
	if !fatal.IsFatal() || !errors.Is(fatal.Err(), boom) || fatal.Reason() != "boom" {
		t.Fatalf("unexpected fatal result: %+v", fatal)
	}
	if Fatal[int](nil).Err() == nil {
		t.Fatalf("expected default error for nil fatal")
	}
	if KindSkip.String() != "skip" {
		t.Fatalf("unexpected kind string")
	}
}
