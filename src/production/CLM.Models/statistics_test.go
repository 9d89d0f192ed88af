package clmmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsAccumulatorIsOrderIndependent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{DeviceID: "d1", Temperature: 20, Humidity: 40, Location: "Hall", Timestamp: base},
		{DeviceID: "d1", Temperature: 25, Humidity: 50, Location: "Attic", Timestamp: base.Add(2 * time.Minute)},
		{DeviceID: "d1", Temperature: 22, Humidity: 45, Location: "Cellar", Timestamp: base.Add(time.Minute)},
	}

	var forward, backward StatisticsAccumulator
	for i := range readings {
		forward.Add(readings[i])
		backward.Add(readings[len(readings)-1-i])
	}

	for _, s := range []DeviceStatistics{forward.Result(), backward.Result()} {
		assert.Equal(t, "d1", s.DeviceID)
		assert.InDelta(t, 22.333, s.AvgTemperature, 0.01)
		assert.Equal(t, 20.0, s.MinTemperature)
		assert.Equal(t, 25.0, s.MaxTemperature)
		assert.InDelta(t, 45.0, s.AvgHumidity, 0.001)
		assert.Equal(t, 40.0, s.MinHumidity)
		assert.Equal(t, 50.0, s.MaxHumidity)
		assert.Equal(t, int64(3), s.DataPoints)
		assert.Equal(t, base.Add(2*time.Minute), s.LastReading)
		assert.Equal(t, "Attic", s.Location)
	}
}

func TestSummaryFromReading(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := SummaryFromReading(Reading{DeviceID: "d1", Temperature: 19.5, Humidity: 33, Timestamp: ts})
	assert.Equal(t, DeviceSummary{
		DeviceID:        "d1",
		Location:        DefaultLocation,
		LastSeen:        ts,
		LastTemperature: 19.5,
		LastHumidity:    33,
	}, s)
}
