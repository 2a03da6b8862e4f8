// Package refresher recomputes recently requested forecasts on a fixed
// interval and rewrites their cache entries before they expire.
package refresher

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/solar-forecast-service/internal/cache"
	"github.com/i474232898/solar-forecast-service/internal/solar"
	"github.com/i474232898/solar-forecast-service/internal/tracker"
)

// minInterval bounds how often a cycle may run regardless of configuration.
const minInterval = 30 * time.Second

// Refresher owns the background warm-keeping job. It is inert until Start
// and stops on Stop; the process supervisor holds the handle.
type Refresher struct {
	scheduler *gocron.Scheduler
	engine    *solar.Engine
	cache     *cache.ResponseCache
	deriver   *cache.KeyDeriver
	tracker   *tracker.SpecTracker
	interval  time.Duration
	enabled   bool
}

// New creates a Refresher running every interval (floored to 30s).
func New(
	engine *solar.Engine,
	respCache *cache.ResponseCache,
	deriver *cache.KeyDeriver,
	specs *tracker.SpecTracker,
	interval time.Duration,
	enabled bool,
) *Refresher {
	if interval < minInterval {
		interval = minInterval
	}
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		cache:     respCache,
		deriver:   deriver,
		tracker:   specs,
		interval:  interval,
		enabled:   enabled,
	}
}

// Start schedules the periodic job. A disabled refresher starts nothing.
func (r *Refresher) Start() error {
	if !r.enabled {
		log.Println("refresher: disabled; not scheduling")
		return nil
	}

	_, err := r.scheduler.Every(r.interval).Do(func() {
		refreshed := r.RefreshOnce(context.Background())
		if refreshed > 0 {
			log.Printf("refresher: rewrote %d cache entries", refreshed)
		}
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

// Stop cancels the job and stops the scheduler.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

// RefreshOnce snapshots the live specs and recomputes each one, rewriting
// its cache entry. A spec that fails to compute is logged and skipped; one
// bad spec never aborts the cycle.
func (r *Refresher) RefreshOnce(ctx context.Context) int {
	specs := r.tracker.ListLive(r.cache.TTL())

	var refreshed int
	for _, spec := range specs {
		site, err := solar.NewSite(spec.Lat, spec.Lon, spec.Tilt, spec.Azimuth, spec.Kwp, spec.Cadence)
		if err != nil {
			log.Printf("refresher: skipping invalid spec %s: %v", spec.Endpoint, err)
			continue
		}

		result, err := r.engine.ComputeForecast(site, spec.Source)
		if err != nil {
			log.Printf("refresher: recompute failed for %s: %v", spec.Endpoint, err)
			continue
		}

		r.cache.Store(ctx, r.deriver.Derive(spec), result)
		refreshed++
	}
	return refreshed
}
