package solar

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Site describes the photovoltaic installation a forecast is computed for.
// AzimuthConv follows the Forecast.Solar convention: 0=south, +east, -west.
type Site struct {
	Lat         float64 `validate:"gte=-90,lte=90"`
	Lon         float64 `validate:"gte=-180,lte=180"`
	Tilt        float64 `validate:"gte=0,lte=90"`
	AzimuthConv float64 `validate:"gte=-180,lte=180"`
	Kwp         float64 `validate:"gt=0,lte=1000"`

	// Cadence is the sampling interval of the forecast series.
	Cadence time.Duration
}

// NewSite builds a Site and validates every field against its allowed range.
func NewSite(lat, lon, tilt, azimuthConv, kwp float64, cadence string) (Site, error) {
	s := Site{
		Lat:         lat,
		Lon:         lon,
		Tilt:        tilt,
		AzimuthConv: azimuthConv,
		Kwp:         kwp,
		Cadence:     ParseCadence(cadence),
	}
	if err := validate.Struct(s); err != nil {
		return Site{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s, nil
}

// NameplateWatts is the installed DC rating in watts, used as the AC clip.
func (s Site) NameplateWatts() float64 {
	return s.Kwp * 1000.0
}

// CompassAzimuth converts the 0=south/+E/-W convention to compass degrees
// (0=north, 90=east, 180=south, 270=west).
func (s Site) CompassAzimuth() float64 {
	return 180.0 - s.AzimuthConv
}

// ForecastSpec is the logical identity of a forecast request. Two requests
// with the same spec (after key rounding) are cache-equivalent.
type ForecastSpec struct {
	Endpoint string
	Lat      float64
	Lon      float64
	Tilt     float64
	Azimuth  float64
	Kwp      float64
	Cadence  string
	Source   string
}
