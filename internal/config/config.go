// Package config validates the static shape of a run (tile size, locality
// count, scheduler mode) before any Holder or Manager is constructed, and
// sizes the tile cache from available system RAM the way the teacher's
// internal/tile/memlimit.go sized its disk-spill threshold from total RAM.
package config

import (
	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/scheduler"
)

// Dataset describes the static shape of a tiled run: the square tile-grid
// dimension (n x n lower-triangular tile matrix), the per-tile side length
// (rows == cols == TileSize), and the scheduler mode/locality count to run
// under.
type Dataset struct {
	NTiles     int
	TileSize   int
	Localities []int
	Mode       scheduler.Mode
	Width      int // only consulted when Mode == Cyclic
	Height     int // only consulted when Mode == Cyclic
}

// Validate checks the dataset shape for internal consistency before any
// Holder, Manager, or Scheduler is constructed, matching spec.md §2's
// Configuration-error reporting (raised eagerly, never discovered mid-DAG).
func (d Dataset) Validate() error {
	if d.NTiles <= 0 {
		return gprerrors.Wrap(gprerrors.KindConfiguration, "config: n_tiles must be positive, got %d", d.NTiles)
	}
	if d.TileSize <= 0 {
		return gprerrors.Wrap(gprerrors.KindConfiguration, "config: tile_size must be positive, got %d", d.TileSize)
	}
	if len(d.Localities) == 0 {
		return gprerrors.Wrap(gprerrors.KindConfiguration, "config: at least one locality is required")
	}
	seen := make(map[int]bool, len(d.Localities))
	for _, l := range d.Localities {
		if seen[l] {
			return gprerrors.Wrap(gprerrors.KindConfiguration, "config: duplicate locality id %d", l)
		}
		seen[l] = true
	}
	if d.Mode == scheduler.Cyclic && d.Width*d.Height != len(d.Localities) {
		return gprerrors.Wrap(gprerrors.KindConfiguration, "config: cyclic width*height (%d*%d) must equal locality count %d", d.Width, d.Height, len(d.Localities))
	}
	return nil
}

// NewScheduler constructs the scheduler named by d.Mode after validating d.
func (d Dataset) NewScheduler() (*scheduler.Scheduler, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	switch d.Mode {
	case scheduler.Local:
		return scheduler.NewLocal(d.Localities)
	case scheduler.SMA:
		return scheduler.NewSMA(d.Localities)
	case scheduler.Cyclic:
		return scheduler.NewCyclic(d.Localities, d.Width, d.Height)
	default:
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration, "config: unknown scheduler mode %v", d.Mode)
	}
}

// TileBytes returns the byte footprint of one TileSize x TileSize
// float64 tile, the unit ComputeCacheCapacity divides available RAM by.
func (d Dataset) TileBytes() int64 {
	return int64(d.TileSize) * int64(d.TileSize) * 8
}
