package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/i474232898/solar-forecast-service/internal/solar"
)

// keyPrefix namespaces forecast cache entries away from any other data
// sharing the store (rate-limit counters live under "solarcast:rl:").
const keyPrefix = "solarcast:fc:"

// schemaVersion is folded into every key so a format change invalidates
// old entries instead of serving them.
const schemaVersion = "v1"

// KeyDeriver turns a ForecastSpec into a stable cache key. Parameters are
// rounded (lat/lon 1e-5, tilt/azimuth 1e-2, kwp 1e-3) so requests that are
// semantically identical map to the same key, and the cadence-floored
// bucket start is included so keys expire naturally as time advances.
type KeyDeriver struct {
	location    *time.Location
	horizonDays int

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewKeyDeriver creates a deriver for the given zone and horizon.
func NewKeyDeriver(loc *time.Location, horizonDays int) *KeyDeriver {
	return &KeyDeriver{
		location:    loc,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// WithNow overrides the deriver's clock. Intended for tests.
func (d *KeyDeriver) WithNow(now func() time.Time) *KeyDeriver {
	d.now = now
	return d
}

// Derive computes the cache key for the spec's current time bucket.
func (d *KeyDeriver) Derive(spec solar.ForecastSpec) string {
	cadence := solar.NormalizeCadence(spec.Cadence)
	bucket := solar.FloorToCadence(d.now().In(d.location), solar.ParseCadence(cadence))

	canonical := fmt.Sprintf("%s|%s|%.5f|%.5f|%.2f|%.2f|%.3f|%s|%s|%s|%d|%s",
		schemaVersion,
		spec.Endpoint,
		spec.Lat,
		spec.Lon,
		spec.Tilt,
		spec.Azimuth,
		spec.Kwp,
		cadence,
		spec.Source,
		d.location.String(),
		d.horizonDays,
		bucket.Format("2006-01-02 15:04:05"),
	)

	sum := sha256.Sum256([]byte(canonical))
	return keyPrefix + hex.EncodeToString(sum[:])
}
