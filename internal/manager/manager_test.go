package manager

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/holder"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

func scalarBuf(v float64) tilebuf.Buffer {
	b := tilebuf.New(1, 1)
	b.ViewMut()[0] = v
	return b
}

// TestGetSetLocal exercises the direct-Holder path: both GetTile and SetTile
// when the handle's Home matches the calling Manager's own locality.
func TestGetSetLocal(t *testing.T) {
	reg := NewRegistry()
	m := New(0, reg, 0)

	hd := holder.New(0, scalarBuf(1))
	if err := m.RegisterHolder(hd); err != nil {
		t.Fatal(err)
	}

	h := Handle{ManagerRefs: []int{0}, GID: hd.GID(), Home: 0}

	buf, err := m.GetTile(h)
	if err != nil {
		t.Fatal(err)
	}
	if buf.At(0, 0) != 1 {
		t.Fatalf("GetTile = %v, want 1", buf.At(0, 0))
	}

	next, err := m.SetTile(h, scalarBuf(2)).Await()
	if err != nil {
		t.Fatal(err)
	}
	if next.Generation != 1 {
		t.Fatalf("Generation after Set = %d, want 1", next.Generation)
	}

	buf, err = m.GetTile(h)
	if err != nil {
		t.Fatal(err)
	}
	if buf.At(0, 0) != 2 {
		t.Fatalf("GetTile after Set = %v, want 2", buf.At(0, 0))
	}
}

// TestGetSetRemote exercises the remote path from a second locality: the
// first fetch must miss the cache and go through remoteGet, and SetTile must
// speculatively insert into the cache before the remote write completes.
func TestGetSetRemote(t *testing.T) {
	reg := NewRegistry()
	home := New(0, reg, 0)
	away := New(1, reg, 0)

	hd := holder.New(0, scalarBuf(5))
	if err := home.RegisterHolder(hd); err != nil {
		t.Fatal(err)
	}

	h := Handle{ManagerRefs: []int{0, 1}, GID: hd.GID(), Home: 0}

	buf, err := away.GetTile(h)
	if err != nil {
		t.Fatal(err)
	}
	if buf.At(0, 0) != 5 {
		t.Fatalf("remote GetTile = %v, want 5", buf.At(0, 0))
	}

	// Second fetch should now be served from away's cache, not remoteGet
	// again; the cache is opaque from here, so just assert it still agrees.
	buf, err = away.GetTile(h)
	if err != nil {
		t.Fatal(err)
	}
	if buf.At(0, 0) != 5 {
		t.Fatalf("cached GetTile = %v, want 5", buf.At(0, 0))
	}

	next, err := away.SetTile(h, scalarBuf(9)).Await()
	if err != nil {
		t.Fatal(err)
	}
	if next.Home != 0 {
		t.Fatalf("Set result Home = %d, want 0", next.Home)
	}

	// remoteSet runs synchronously inside the future's goroutine but Await
	// blocks until it's done, so the home Holder must already reflect it.
	homeBuf, _ := hd.Get()
	if homeBuf.At(0, 0) != 9 {
		t.Fatalf("home holder after remote Set = %v, want 9", homeBuf.At(0, 0))
	}
}

// TestGetTileConcurrentFetchesCollapse issues concurrent remote GetTile
// calls for the same handle, which go through the singleflight group, and
// checks that every caller observes the correct value. It does not count
// how many transport calls were made.
func TestGetTileConcurrentFetchesCollapse(t *testing.T) {
	reg := NewRegistry()
	home := New(0, reg, 0)
	away := New(1, reg, 0)

	hd := holder.New(0, scalarBuf(7))
	if err := home.RegisterHolder(hd); err != nil {
		t.Fatal(err)
	}
	h := Handle{ManagerRefs: []int{0, 1}, GID: hd.GID(), Home: 0}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf, err := away.GetTile(h)
			errs[i] = err
			if err == nil {
				vals[i] = buf.At(0, 0)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if vals[i] != 7 {
			t.Fatalf("goroutine %d: got %v, want 7", i, vals[i])
		}
	}
}

// TestGetTileUnknownLocality checks the topology error when a handle doesn't
// list the calling Manager's locality in ManagerRefs.
func TestGetTileUnknownLocality(t *testing.T) {
	reg := NewRegistry()
	m := New(0, reg, 0)
	h := Handle{ManagerRefs: []int{1, 2}, GID: uuid.New(), Home: 1}

	_, err := m.GetTile(h)
	if !gprerrors.Is(err, gprerrors.KindTopology) {
		t.Fatalf("err = %v, want KindTopology", err)
	}
}

// TestRegistryGetMissing checks the topology error for an unregistered
// locality.
func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get(42)
	if !gprerrors.Is(err, gprerrors.KindTopology) {
		t.Fatalf("err = %v, want KindTopology", err)
	}
}
