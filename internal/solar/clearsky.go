package solar

import (
	"math"
	"time"
)

// PhysicsModel maps a time index and site geometry to an AC power series in
// watts, one sample per index point, already clipped to [0, nameplate].
type PhysicsModel interface {
	Name() string
	PowerSeries(site Site, index []time.Time) []float64
}

// ClearSkyModel estimates AC output under a cloudless sky: NOAA solar
// position, Haurwitz clear-sky irradiance, isotropic transposition to the
// plane of array, NOCT cell temperature and a PVWatts-style DC model.
type ClearSkyModel struct {
	// SystemLoss is the combined inverter/wiring/soiling loss fraction.
	SystemLoss float64

	// Albedo is the ground reflectance used for the reflected component.
	Albedo float64
}

// NewClearSkyModel returns a model with the given system loss fraction and
// a 0.2 ground albedo.
func NewClearSkyModel(systemLoss float64) *ClearSkyModel {
	return &ClearSkyModel{SystemLoss: systemLoss, Albedo: 0.2}
}

func (m *ClearSkyModel) Name() string { return "clearsky" }

const (
	gammaPdc = -0.004 // DC temperature coefficient per degC
	noctCell = 45.0   // nominal operating cell temperature, degC
	ambientC = 20.0   // ambient fallback assumption, degC
)

// PowerSeries computes the AC watts for every index point.
func (m *ClearSkyModel) PowerSeries(site Site, index []time.Time) []float64 {
	nameplate := site.NameplateWatts()
	out := make([]float64, len(index))

	for i, ts := range index {
		poa := m.planeOfArray(site, ts)
		if poa <= 0 {
			continue
		}

		// NOCT-style cell temperature rise above ambient.
		cellTemp := ambientC + poa/800.0*(noctCell-ambientC)

		// PVWatts-like DC power.
		pdc := nameplate * (poa / 1000.0) * (1 + gammaPdc*(cellTemp-25.0))
		if pdc < 0 {
			pdc = 0
		}

		ac := pdc * (1.0 - m.SystemLoss)
		if ac > nameplate {
			ac = nameplate
		}
		out[i] = ac
	}
	return out
}

// planeOfArray returns the clear-sky irradiance on the tilted array in W/m2.
func (m *ClearSkyModel) planeOfArray(site Site, ts time.Time) float64 {
	elev, sunAz := solarPosition(site.Lat, site.Lon, ts)
	if elev <= 0 {
		return 0
	}

	cosZenith := math.Sin(elev)

	// Haurwitz clear-sky global horizontal irradiance.
	ghi := 1098.0 * cosZenith * math.Exp(-0.057/cosZenith)
	if ghi <= 0 {
		return 0
	}

	// Coarse diffuse split; direct normal from the remainder.
	dhi := 0.12 * ghi
	dni := (ghi - dhi) / cosZenith

	tilt := site.Tilt * math.Pi / 180
	surfAz := site.CompassAzimuth() * math.Pi / 180

	// Angle of incidence on the tilted plane.
	cosAOI := math.Sin(elev)*math.Cos(tilt) +
		math.Cos(elev)*math.Sin(tilt)*math.Cos(sunAz-surfAz)
	if cosAOI < 0 {
		cosAOI = 0
	}

	beam := dni * cosAOI
	diffuse := dhi * (1 + math.Cos(tilt)) / 2
	reflected := ghi * m.Albedo * (1 - math.Cos(tilt)) / 2

	poa := beam + diffuse + reflected
	if poa < 0 {
		poa = 0
	}
	return poa
}

// solarPosition returns the solar elevation and azimuth in radians for the
// given location and instant. Azimuth is compass convention (0=north,
// clockwise). Based on the NOAA low-accuracy solar calculator equations.
func solarPosition(lat, lon float64, ts time.Time) (elevation, azimuth float64) {
	utc := ts.UTC()
	doy := float64(utc.YearDay())
	hour := float64(utc.Hour()) + float64(utc.Minute())/60 + float64(utc.Second())/3600

	// Fractional year in radians.
	gamma := 2 * math.Pi / 365 * (doy - 1 + (hour-12)/24)

	// Equation of time in minutes.
	eqTime := 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))

	// Solar declination in radians.
	decl := 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	// True solar time in minutes, hour angle in radians.
	tst := hour*60 + eqTime + 4*lon
	ha := (tst/4 - 180) * math.Pi / 180

	latRad := lat * math.Pi / 180

	cosZenith := math.Sin(latRad)*math.Sin(decl) +
		math.Cos(latRad)*math.Cos(decl)*math.Cos(ha)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	zenith := math.Acos(cosZenith)
	elevation = math.Pi/2 - zenith

	sinZenith := math.Sin(zenith)
	if sinZenith < 1e-9 {
		// Sun at zenith; azimuth is undefined, pick south.
		return elevation, math.Pi
	}

	cosAz := (math.Sin(decl) - cosZenith*math.Sin(latRad)) / (sinZenith * math.Cos(latRad))
	cosAz = math.Max(-1, math.Min(1, cosAz))
	azimuth = math.Acos(cosAz)
	if ha > 0 {
		azimuth = 2*math.Pi - azimuth
	}
	return elevation, azimuth
}
