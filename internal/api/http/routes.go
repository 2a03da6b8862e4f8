// Package httpapi wires the forecast endpoints into the Fiber app.
package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-forecast-service/internal/cache"
	"github.com/i474232898/solar-forecast-service/internal/metrics"
	"github.com/i474232898/solar-forecast-service/internal/solar"
	"github.com/i474232898/solar-forecast-service/internal/tracker"
)

// Message is the status envelope attached to every forecast response.
type Message struct {
	Type string `json:"type"`
	Code int    `json:"code"`
	Text string `json:"text"`
}

// ForecastResponse is the wire shape of both forecast endpoints.
type ForecastResponse struct {
	Result  solar.Result `json:"result"`
	Message Message      `json:"message"`
}

func successMessage() Message {
	return Message{Type: "success", Code: 0, Text: ""}
}

// ErrorResponse builds the envelope for a failed request: empty series
// plus an error message carrying the given code.
func ErrorResponse(code int, text string) ForecastResponse {
	return ForecastResponse{
		Result:  solar.EmptyResult(),
		Message: Message{Type: "error", Code: code, Text: text},
	}
}

// Deps bundles the collaborators the handlers need.
type Deps struct {
	Engine  *solar.Engine
	Cache   *cache.ResponseCache
	Deriver *cache.KeyDeriver
	Tracker *tracker.SpecTracker
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/clearsky/:lat/:lon/:declination/:azimuth/:kwp", handleClearSky(deps))
	app.Get("/estimate/:lat/:lon/:declination/:azimuth/:kwp", handleEstimate(deps))
}

// handleClearSky serves the cache-backed forecast path: derive the key,
// try the cache, compute and store on a miss, and track the spec either
// way so the refresher keeps it warm.
func handleClearSky(deps Deps) fiber.Handler {
	ttlSeconds := int(deps.Cache.TTL().Seconds())

	return func(c *fiber.Ctx) error {
		spec, site, err := parseForecastParams(c, "clearsky")
		if err != nil {
			return c.JSON(ErrorResponse(fiber.StatusBadRequest, err.Error()))
		}

		key := deps.Deriver.Derive(spec)
		c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", ttlSeconds))

		ctx := c.UserContext()
		if result, outcome := deps.Cache.Lookup(ctx, key); outcome == cache.Hit {
			c.Set("X-Cache", "HIT")
			metrics.CacheHitsTotal.WithLabelValues("clearsky").Inc()
			deps.Tracker.Record(key, spec)
			return c.JSON(ForecastResponse{Result: result, Message: successMessage()})
		}

		result, err := deps.Engine.ComputeForecast(site, spec.Source)
		if err != nil {
			return c.JSON(ErrorResponse(fiber.StatusBadRequest, err.Error()))
		}

		deps.Cache.Store(ctx, key, result)
		deps.Tracker.Record(key, spec)
		c.Set("X-Cache", "MISS")
		return c.JSON(ForecastResponse{Result: result, Message: successMessage()})
	}
}

// handleEstimate computes directly without touching the cache. The
// estimate source is the clear-sky model for now.
func handleEstimate(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, site, err := parseForecastParams(c, "estimate")
		if err != nil {
			return c.JSON(ErrorResponse(fiber.StatusBadRequest, err.Error()))
		}

		result, err := deps.Engine.ComputeForecast(site, solar.SourceClearSky)
		if err != nil {
			return c.JSON(ErrorResponse(fiber.StatusBadRequest, err.Error()))
		}
		return c.JSON(ForecastResponse{Result: result, Message: successMessage()})
	}
}

// parseForecastParams reads the path parameters and cadence query and
// builds both the logical spec and the validated site.
func parseForecastParams(c *fiber.Ctx, endpoint string) (solar.ForecastSpec, solar.Site, error) {
	lat, err := paramFloat(c, "lat")
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}
	lon, err := paramFloat(c, "lon")
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}
	tilt, err := paramFloat(c, "declination")
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}
	azimuth, err := paramFloat(c, "azimuth")
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}
	kwp, err := paramFloat(c, "kwp")
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}

	cadence := solar.NormalizeCadence(c.Query("time", "60m"))

	site, err := solar.NewSite(lat, lon, tilt, azimuth, kwp, cadence)
	if err != nil {
		return solar.ForecastSpec{}, solar.Site{}, err
	}

	spec := solar.ForecastSpec{
		Endpoint: endpoint,
		Lat:      lat,
		Lon:      lon,
		Tilt:     tilt,
		Azimuth:  azimuth,
		Kwp:      kwp,
		Cadence:  cadence,
		Source:   solar.SourceClearSky,
	}
	return spec, site, nil
}

func paramFloat(c *fiber.Ctx, name string) (float64, error) {
	v, err := strconv.ParseFloat(c.Params(name), 64)
	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return v, nil
}
