package gprerrors

import (
	"errors"
	"testing"
)

func TestWrapIs(t *testing.T) {
	err := Wrap(KindTopology, "no manager for locality %d", 3)
	if !Is(err, KindTopology) {
		t.Fatalf("Is(err, KindTopology) = false, want true")
	}
	if Is(err, KindTransport) {
		t.Fatalf("Is(err, KindTransport) = true, want false")
	}
}

func TestWrapErrPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapErr(KindTransport, cause, "remote fetch failed")
	if !Is(err, KindTransport) {
		t.Fatalf("Is(err, KindTransport) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("Unwrap chain does not reach original cause")
	}
}

func TestWrapErrNilIsNil(t *testing.T) {
	if err := WrapErr(KindKernel, nil, "unused"); err != nil {
		t.Fatalf("WrapErr(nil) = %v, want nil", err)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindConfiguration: "configuration",
		KindTopology:      "topology",
		KindTransport:     "transport",
		KindKernel:        "kernel",
		KindOutOfRange:    "out_of_range",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestIsOnPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindKernel) {
		t.Fatalf("Is on a non-gprat error should be false")
	}
}
