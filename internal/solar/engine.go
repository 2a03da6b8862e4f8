package solar

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrValidation marks a site field outside its allowed range.
	ErrValidation = errors.New("site validation failed")

	// ErrUnsupportedSource marks a forecast source this engine cannot serve.
	ErrUnsupportedSource = errors.New("unsupported forecast source")
)

// SourceClearSky is the only supported forecast source.
const SourceClearSky = "clearsky"

const (
	timestampLayout = "2006-01-02 15:04:05"
	dayLayout       = "2006-01-02"
)

// Result is a computed forecast: instantaneous AC power, cumulative energy
// and per-day energy, keyed by formatted local timestamps. Index preserves
// the sample ordering that the maps cannot.
type Result struct {
	Watts        map[string]float64 `json:"watts"`
	WattHours    map[string]float64 `json:"watt_hours"`
	WattHoursDay map[string]float64 `json:"watt_hours_day"`

	Index []time.Time `json:"-"`
}

// EmptyResult is the series payload used on error envelopes.
func EmptyResult() Result {
	return Result{
		Watts:        map[string]float64{},
		WattHours:    map[string]float64{},
		WattHoursDay: map[string]float64{},
	}
}

// Engine turns a site and a forecast source into a Result.
type Engine struct {
	model       PhysicsModel
	location    *time.Location
	horizonDays int

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewEngine creates an Engine computing forecasts in the given zone over
// the given horizon using the supplied physics model.
func NewEngine(model PhysicsModel, loc *time.Location, horizonDays int) *Engine {
	return &Engine{
		model:       model,
		location:    loc,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// WithNow overrides the engine's clock. Intended for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Location returns the zone forecasts are computed in.
func (e *Engine) Location() *time.Location { return e.location }

// HorizonDays returns the forecast horizon in whole days.
func (e *Engine) HorizonDays() int { return e.horizonDays }

// ComputeForecast validates the site, builds the time index, obtains the
// AC power series from the physics model and derives cumulative and daily
// energy. Deterministic given (site, now, model); no other side effects.
func (e *Engine) ComputeForecast(site Site, source string) (Result, error) {
	if err := validate.Struct(site); err != nil {
		return Result{}, errors.Join(ErrValidation, err)
	}
	if source != SourceClearSky {
		return Result{}, ErrUnsupportedSource
	}

	index := TimeIndex(e.now(), e.location, e.horizonDays, site.Cadence)
	watts := e.model.PowerSeries(site, index)

	// Power is rounded to the serialized precision before integration so
	// the energy series agrees with the published watts.
	for i := range watts {
		watts[i] = round3(watts[i])
	}

	result := Result{
		Watts:        make(map[string]float64, len(index)),
		WattHours:    make(map[string]float64, len(index)),
		WattHoursDay: make(map[string]float64),
		Index:        index,
	}

	daily := make(map[string]float64)
	var cumulative float64
	for i, ts := range index {
		// The first sample has no preceding interval and contributes 0.
		var incremental float64
		if i > 0 {
			elapsed := ts.Sub(index[i-1]).Hours()
			incremental = watts[i] * elapsed
		}
		cumulative += incremental
		daily[ts.Format(dayLayout)] += incremental

		key := ts.Format(timestampLayout)
		result.Watts[key] = watts[i]
		result.WattHours[key] = round3(cumulative)
	}
	for day, wh := range daily {
		result.WattHoursDay[day] = round3(wh)
	}

	return result, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
