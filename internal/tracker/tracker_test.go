package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/solar-forecast-service/internal/solar"
)

func spec(lat float64) solar.ForecastSpec {
	return solar.ForecastSpec{
		Endpoint: "clearsky",
		Lat:      lat,
		Lon:      10.12,
		Tilt:     30,
		Kwp:      5,
		Cadence:  "60m",
		Source:   "clearsky",
	}
}

func TestRecordAndListLive(t *testing.T) {
	tr := New(10)

	tr.Record("key-a", spec(54.32))
	tr.Record("key-b", spec(48.13))

	live := tr.ListLive(15 * time.Minute)
	assert.Len(t, live, 2)
}

func TestRecordOverwritesExistingKey(t *testing.T) {
	tr := New(10)

	tr.Record("key-a", spec(54.32))
	tr.Record("key-a", spec(48.13))

	live := tr.ListLive(15 * time.Minute)
	assert.Len(t, live, 1)
	assert.Equal(t, 48.13, live[0].Lat)
}

func TestListLiveEvictsAgedEntries(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	tr := New(10).WithNow(func() time.Time { return now })

	tr.Record("key-a", spec(54.32))

	now = now.Add(10 * time.Minute)
	tr.Record("key-b", spec(48.13))

	now = now.Add(6 * time.Minute)
	live := tr.ListLive(15 * time.Minute)
	assert.Len(t, live, 1)
	assert.Equal(t, 48.13, live[0].Lat)

	// The aged entry is gone, not just filtered.
	assert.Equal(t, 1, tr.Len())
}

func TestBoundedCapEvictsOldestFirst(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	tr := New(3).WithNow(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		tr.Record(fmt.Sprintf("key-%d", i), spec(float64(i)))
		now = now.Add(time.Second)
	}
	assert.Equal(t, 3, tr.Len())

	tr.Record("key-3", spec(3))
	assert.Equal(t, 3, tr.Len())

	lats := make(map[float64]bool)
	for _, s := range tr.ListLive(time.Hour) {
		lats[s.Lat] = true
	}
	assert.False(t, lats[0], "oldest entry should have been evicted")
	assert.True(t, lats[3])
}

func TestConcurrentRecordAndList(t *testing.T) {
	tr := New(100)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			tr.Record(fmt.Sprintf("key-%d", i%50), spec(float64(i)))
		}
	}()
	for i := 0; i < 100; i++ {
		tr.ListLive(time.Minute)
	}
	<-done
	assert.LessOrEqual(t, tr.Len(), 50)
}
