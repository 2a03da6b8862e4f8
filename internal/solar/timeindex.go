package solar

import (
	"strconv"
	"strings"
	"time"
)

// cadences recognized by ParseCadence, in minutes.
var cadenceMinutes = map[int]bool{5: true, 10: true, 15: true, 30: true, 60: true}

// ParseCadence maps a cadence string such as "15m" to a duration.
// Unrecognized values fall back to 60 minutes rather than erroring; callers
// that need strict validation normalize first via NormalizeCadence.
func ParseCadence(s string) time.Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "m") {
		if n, err := strconv.Atoi(strings.TrimSuffix(s, "m")); err == nil && cadenceMinutes[n] {
			return time.Duration(n) * time.Minute
		}
	}
	return 60 * time.Minute
}

// NormalizeCadence returns the canonical "<minutes>m" form of a cadence
// string, applying the same 60m fallback as ParseCadence.
func NormalizeCadence(s string) string {
	return strconv.Itoa(int(ParseCadence(s).Minutes())) + "m"
}

// FloorToCadence floors t to the cadence boundary within its hour,
// dropping seconds and sub-second precision.
func FloorToCadence(t time.Time, cadence time.Duration) time.Time {
	step := int(cadence.Minutes())
	minute := (t.Minute() / step) * step
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// TimeIndex produces the ordered sequence of zone-aware timestamps a
// forecast spans: from "now" floored to the cadence boundary up to and
// including the end of the horizon, spaced by the cadence. Samples are
// evenly spaced in absolute time; their wall-clock labels skip forward
// across a spring-forward transition and fold across a fall-back one.
func TimeIndex(now time.Time, loc *time.Location, horizonDays int, cadence time.Duration) []time.Time {
	start := FloorToCadence(now.In(loc), cadence)
	end := start.Add(time.Duration(horizonDays) * 24 * time.Hour)

	index := make([]time.Time, 0, int(end.Sub(start)/cadence)+1)
	for t := start; !t.After(end); t = t.Add(cadence) {
		index = append(index, t)
	}
	return index
}
