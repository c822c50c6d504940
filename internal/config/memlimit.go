package config

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// DefaultCacheMemoryFraction is the fraction of total RAM the tile cache is
// permitted to occupy. 0.25 = 25%, leaving the remainder for Holders,
// in-flight buffers, and the Go runtime itself.
const DefaultCacheMemoryFraction = 0.25

// ComputeCacheCapacity derives tilecache.New's capacity argument (an entry
// count, not a byte count) from total system RAM and the byte footprint of
// one tile, the way the teacher's internal/tile/memlimit.go derived a
// disk-spill threshold from total RAM rather than hard-coding one. Returns
// tilecache.DefaultCapacity-equivalent behavior (0, meaning "let the caller
// fall back") if RAM detection fails or the computed capacity is smaller
// than minCapacity.
func ComputeCacheCapacity(fraction float64, tileBytes int64, minCapacity int, logger *logrus.Logger) int {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if logger != nil {
			logger.WithError(err).Warn("config: cannot detect system RAM, falling back to default cache capacity")
		}
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys + 512*1024*1024 // current usage + 512 MB headroom

	budget := int64(float64(totalRAM)*fraction) - int64(overhead)
	if budget <= 0 || tileBytes <= 0 {
		if logger != nil {
			logger.Warn("config: no RAM budget remains for the tile cache, falling back to default capacity")
		}
		return 0
	}

	capacity := int(budget / tileBytes)
	if capacity < minCapacity {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"computed_capacity": capacity,
				"min_capacity":      minCapacity,
			}).Warn("config: computed cache capacity below minimum, falling back to default capacity")
		}
		return 0
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"total_ram_gb": float64(totalRAM) / (1024 * 1024 * 1024),
			"capacity":     capacity,
		}).Info("config: sized tile cache from system RAM")
	}
	return capacity
}
