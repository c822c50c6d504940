package manager

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pspoerri/gprat/internal/future"
	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/holder"
	"github.com/pspoerri/gprat/internal/tilebuf"
	"github.com/pspoerri/gprat/internal/tilecache"
	"github.com/pspoerri/gprat/internal/telemetry"
)

// BufferFuture resolves to a tile's contents.
type BufferFuture = future.Future[tilebuf.Buffer]

// HandleFuture resolves to an advanced Handle.
type HandleFuture = future.Future[Handle]

func failedBufferFuture(err error) *BufferFuture { return future.Resolved(tilebuf.Buffer{}, err) }
func failedHandleFuture(err error) *HandleFuture  { return future.Resolved(Handle{}, err) }

// Manager is the per-locality proxy of §4.4: one per locality, holding a
// strong reference to every Holder co-located on this locality, and
// routing everything else through the Registry.
type Manager struct {
	locality int
	registry *Registry
	local    map[uuid.UUID]*holder.Holder
	cache    *tilecache.Cache

	// fetchGroup collapses concurrent remote fetches for the same
	// (gid, generation) into a single transport call, generalizing
	// golang.org/x/sync/singleflight (a direct dependency of
	// jcom-dev-zmanim and GoogleContainerTools-skaffold) to the tile-fetch
	// path — the teacher's own cog.TileCache has no equivalent collapsing
	// and would issue one decode per concurrent caller.
	fetchGroup singleflight.Group
}

// New creates a Manager for the given locality and registers it on reg.
// cacheCapacity is forwarded to tilecache.New (0 selects
// tilecache.DefaultCapacity).
func New(locality int, reg *Registry, cacheCapacity int) *Manager {
	m := &Manager{
		locality: locality,
		registry: reg,
		local:    make(map[uuid.UUID]*holder.Holder),
		cache:    tilecache.New(cacheCapacity),
	}
	reg.Add(m)
	return m
}

// Locality returns this Manager's locality id.
func (m *Manager) Locality() int { return m.locality }

// RegisterHolder pins h's Holder to this Manager as a co-located (strong
// reference) Holder. Called once per tile at dataset construction, on
// whichever Manager matches the Holder's home locality.
func (m *Manager) RegisterHolder(h *holder.Holder) error {
	if h.Home() != m.locality {
		return gprerrors.Wrap(gprerrors.KindTopology, "manager: cannot register holder whose home locality %d differs from manager locality %d", h.Home(), m.locality)
	}
	m.local[h.GID()] = h
	return nil
}

// GetTile resolves h's buffer via the three-way path of §4.4: direct
// Holder access when home is local, a cache hit, or a remote fetch.
func (m *Manager) GetTile(h Handle) (tilebuf.Buffer, error) {
	if !h.hasLocality(m.locality) {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindTopology, "manager: handle for tile %s has no manager on locality %d", h.GID, m.locality)
	}
	if h.Home == m.locality {
		hd, ok := m.local[h.GID]
		if !ok {
			return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindTopology, "manager: no co-located holder for tile %s on its home locality %d", h.GID, m.locality)
		}
		buf, _ := hd.Get()
		return buf, nil
	}
	if r := m.cache.TryGet(h.GID, h.Generation); r.Hit {
		return r.Buf, nil
	}
	buf, err := m.fetchRemote(h)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return buf, nil
}

// GetTileAsync is the async variant of GetTile, resolving through the same
// path without blocking the caller.
func (m *Manager) GetTileAsync(h Handle) *BufferFuture {
	return future.Go(func() (tilebuf.Buffer, error) { return m.GetTile(h) })
}

// fetchRemote performs (or joins, via singleflight) the remote fetch for
// h.GID at h.Generation, inserting the result into the local cache keyed
// at the generation actually returned, and records remote-fetch telemetry
// measured from submission to delivery (not wire time — see
// telemetry's RecordRemoteFetch).
func (m *Manager) fetchRemote(h Handle) (tilebuf.Buffer, error) {
	start := time.Now()
	key := fmt.Sprintf("%s@%d", h.GID, h.Generation)
	v, err, _ := m.fetchGroup.Do(key, func() (any, error) {
		home, err := m.registry.Get(h.Home)
		if err != nil {
			return nil, err
		}
		buf, gen, err := home.remoteGet(h.GID)
		if err != nil {
			return nil, gprerrors.WrapErr(gprerrors.KindTransport, err, "manager: remote fetch failed")
		}
		m.cache.Insert(h.GID, gen, buf)
		return buf, nil
	})
	telemetry.Counters.RecordRemoteFetch(time.Since(start))
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return v.(tilebuf.Buffer), nil
}

// remoteGet is called by another locality's Manager to read this
// locality's co-located Holder. It is the boundary a real transport would
// sit behind; here it is a direct, in-process call.
func (m *Manager) remoteGet(gid uuid.UUID) (tilebuf.Buffer, uint64, error) {
	hd, ok := m.local[gid]
	if !ok {
		return tilebuf.Buffer{}, 0, gprerrors.Wrap(gprerrors.KindTopology, "manager: remoteGet on locality %d found no holder for tile %s", m.locality, gid)
	}
	buf, gen := hd.Get()
	return buf, gen, nil
}

// remoteSet is called by another locality's Manager to write this
// locality's co-located Holder.
func (m *Manager) remoteSet(gid uuid.UUID, buf tilebuf.Buffer) (uint64, error) {
	hd, ok := m.local[gid]
	if !ok {
		return 0, gprerrors.Wrap(gprerrors.KindTopology, "manager: remoteSet on locality %d found no holder for tile %s", m.locality, gid)
	}
	return hd.Set(buf), nil
}

// SetTile resolves per §4.4: a direct, already-completed write when home
// is local, or a speculative cache insert plus an async remote write
// otherwise. It returns a future of the advanced handle.
func (m *Manager) SetTile(h Handle, buf tilebuf.Buffer) *HandleFuture {
	if !h.hasLocality(m.locality) {
		return failedHandleFuture(gprerrors.Wrap(gprerrors.KindTopology, "manager: handle for tile %s has no manager on locality %d", h.GID, m.locality))
	}
	if h.Home == m.locality {
		hd, ok := m.local[h.GID]
		if !ok {
			return failedHandleFuture(gprerrors.Wrap(gprerrors.KindTopology, "manager: no co-located holder for tile %s on its home locality %d", h.GID, m.locality))
		}
		gen := hd.Set(buf)
		return future.Resolved(h.withGeneration(gen), nil)
	}

	nextGen := h.Generation + 1
	m.cache.Insert(h.GID, nextGen, buf)
	return future.Go(func() (Handle, error) {
		home, err := m.registry.Get(h.Home)
		if err != nil {
			return Handle{}, err
		}
		gen, err := home.remoteSet(h.GID, buf)
		if err != nil {
			return Handle{}, gprerrors.WrapErr(gprerrors.KindTransport, err, "manager: remote set failed")
		}
		return h.withGeneration(gen), nil
	})
}
