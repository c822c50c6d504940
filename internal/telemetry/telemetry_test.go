package telemetry

import (
	"testing"
	"time"
)

func TestRecordBufferAllocDealloc(t *testing.T) {
	Counters.Reset()
	defer Counters.Reset()

	Counters.RecordBufferAlloc(128)
	Counters.RecordBufferAlloc(64)
	Counters.RecordBufferDealloc(64)

	snap := Counters.Snapshot()
	if snap.BufferAllocs != 2 {
		t.Fatalf("BufferAllocs = %d, want 2", snap.BufferAllocs)
	}
	if snap.BufferDeallocs != 1 {
		t.Fatalf("BufferDeallocs = %d, want 1", snap.BufferDeallocs)
	}
	if snap.BufferBytes != 128 {
		t.Fatalf("BufferBytes = %d, want 128", snap.BufferBytes)
	}
}

func TestRecordRemoteFetch(t *testing.T) {
	Counters.Reset()
	defer Counters.Reset()

	Counters.RecordRemoteFetch(10 * time.Millisecond)
	Counters.RecordRemoteFetch(20 * time.Millisecond)

	snap := Counters.Snapshot()
	if snap.RemoteFetchCount != 2 {
		t.Fatalf("RemoteFetchCount = %d, want 2", snap.RemoteFetchCount)
	}
	if want := (10 * time.Millisecond).Nanoseconds() + (20 * time.Millisecond).Nanoseconds(); snap.RemoteFetchNanos != want {
		t.Fatalf("RemoteFetchNanos = %d, want %d", snap.RemoteFetchNanos, want)
	}
}

func TestReset(t *testing.T) {
	Counters.RecordBufferAlloc(8)
	Counters.RecordRemoteFetch(time.Second)
	Counters.Reset()

	snap := Counters.Snapshot()
	if snap != (Snapshot{}) {
		t.Fatalf("Snapshot after Reset = %+v, want zero value", snap)
	}
}
