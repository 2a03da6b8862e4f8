package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/solar-forecast-service/internal/cache"
	"github.com/i474232898/solar-forecast-service/internal/ratelimit"
	"github.com/i474232898/solar-forecast-service/internal/solar"
	"github.com/i474232898/solar-forecast-service/internal/store"
	"github.com/i474232898/solar-forecast-service/internal/tracker"
)

func testApp(t *testing.T) (*fiber.App, Deps) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, loc)
	clock := func() time.Time { return now }

	deps := Deps{
		Engine:  solar.NewEngine(solar.NewClearSkyModel(0.14), loc, 6).WithNow(clock),
		Cache:   cache.NewResponseCache(store.NewMemoryKV(), 15*time.Minute),
		Deriver: cache.NewKeyDeriver(loc, 6).WithNow(clock),
		Tracker: tracker.New(100),
	}

	app := fiber.New()
	RegisterRoutes(app, deps)
	return app, deps
}

func decodeResponse(t *testing.T, resp *http.Response) ForecastResponse {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out ForecastResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestClearSkySuccessEnvelope(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/clearsky/54.32/10.12/30/0/5?time=60m", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "success", out.Message.Type)
	assert.Equal(t, 0, out.Message.Code)
	assert.NotEmpty(t, out.Result.Watts)
	assert.NotEmpty(t, out.Result.WattHours)
	assert.NotEmpty(t, out.Result.WattHoursDay)

	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Equal(t, "public, max-age=900", resp.Header.Get(fiber.HeaderCacheControl))
}

func TestClearSkySecondRequestHitsCache(t *testing.T) {
	app, deps := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/clearsky/54.32/10.12/30/0/5?time=60m", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	first := decodeResponse(t, resp)

	req = httptest.NewRequest(http.MethodGet, "/clearsky/54.32/10.12/30/0/5?time=60m", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	second := decodeResponse(t, resp)

	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, "public, max-age=900", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, first.Result.Watts, second.Result.Watts)

	// Both requests register the spec for warm-keeping.
	assert.Equal(t, 1, deps.Tracker.Len())
}

func TestClearSkyValidationFailure(t *testing.T) {
	app, _ := testApp(t)

	// Latitude out of range.
	req := httptest.NewRequest(http.MethodGet, "/clearsky/91/10.12/30/0/5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "error", out.Message.Type)
	assert.Equal(t, 400, out.Message.Code)
	assert.Empty(t, out.Result.Watts)
	assert.Empty(t, out.Result.WattHours)
	assert.Empty(t, out.Result.WattHoursDay)
}

func TestClearSkyMalformedParameter(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/clearsky/not-a-number/10.12/30/0/5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := decodeResponse(t, resp)
	assert.Equal(t, "error", out.Message.Type)
	assert.Equal(t, 400, out.Message.Code)
}

func TestClearSkyUnknownCadenceFallsBack(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/clearsky/54.32/10.12/30/0/5?time=bogus", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := decodeResponse(t, resp)
	assert.Equal(t, "success", out.Message.Type)
	// 60m cadence over 6 days, both bounds inclusive.
	assert.Len(t, out.Result.Watts, 6*24+1)
}

func TestEstimateBypassesCache(t *testing.T) {
	app, deps := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/estimate/54.32/10.12/30/0/5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "success", out.Message.Type)
	assert.NotEmpty(t, out.Result.Watts)

	assert.Empty(t, resp.Header.Get("X-Cache"))
	assert.Equal(t, 0, deps.Tracker.Len())
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, loc)
	clock := func() time.Time { return now }

	deps := Deps{
		Engine:  solar.NewEngine(solar.NewClearSkyModel(0.14), loc, 6).WithNow(clock),
		Cache:   cache.NewResponseCache(store.NewMemoryKV(), 15*time.Minute),
		Deriver: cache.NewKeyDeriver(loc, 6).WithNow(clock),
		Tracker: tracker.New(100),
	}

	app := fiber.New()
	app.Use(RateLimitMiddleware(ratelimit.New(store.NewMemoryKV(), 2)))
	RegisterRoutes(app, deps)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/estimate/54.32/10.12/30/0/5", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/estimate/54.32/10.12/30/0/5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	out := decodeResponse(t, resp)
	assert.Equal(t, "error", out.Message.Type)
	assert.Equal(t, 429, out.Message.Code)
}

func TestRateLimitUsesForwardedForIdentity(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimitMiddleware(ratelimit.New(store.NewMemoryKV(), 1)))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.9")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.9")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// A different forwarded identity gets its own window.
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "198.51.100.7")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
