package future

import (
	"errors"
	"testing"
)

func TestGoResolvesWithValue(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })
	v, err := f.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("v = %d, want 42", v)
	}
}

func TestGoPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	f := Go(func() (int, error) { return 0, wantErr })
	_, err := f.Await()
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestThenPropagatesUpstreamError(t *testing.T) {
	wantErr := errors.New("upstream failed")
	upstream := Go(func() (int, error) { return 0, wantErr })
	chained := Then(upstream, func(v int) (string, error) {
		t.Fatalf("continuation should not run when upstream failed")
		return "", nil
	})
	_, err := chained.Await()
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestThenChainsValue(t *testing.T) {
	upstream := Go(func() (int, error) { return 10, nil })
	chained := Then(upstream, func(v int) (int, error) { return v * 2, nil })
	got, err := chained.Await()
	if err != nil {
		t.Fatal(err)
	}
	if got != 20 {
		t.Fatalf("got = %d, want 20", got)
	}
}

func TestMultipleAwaitsSeeSameValue(t *testing.T) {
	f, resolve := New[int]()
	resolve(7, nil)
	for i := 0; i < 3; i++ {
		v, _ := f.Await()
		if v != 7 {
			t.Fatalf("Await() #%d = %d, want 7", i, v)
		}
	}
}
