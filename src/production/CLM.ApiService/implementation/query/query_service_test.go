package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	implementation "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
)

var (
	now      = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	queryCfg = config.QueryConfig{DefaultLatestLimit: 10, DefaultRangeLimit: 1000, MaxLimit: 100, DefaultStatsHours: 24}
)

func newService(t *testing.T, readings ...clmmodels.Reading) (*Service, *implementation.MemoryReadingRepository) {
	t.Helper()
	repo := implementation.NewMemoryReadingRepository(30 * 24 * time.Hour)
	for _, r := range readings {
		_, err := repo.Insert(context.Background(), r)
		require.NoError(t, err)
	}
	svc := NewService(repo, queryCfg)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func at(device string, temp float64, ago time.Duration, location string) clmmodels.Reading {
	return clmmodels.Reading{
		DeviceID:    device,
		Temperature: temp,
		Humidity:    50,
		Location:    location,
		Timestamp:   now.Add(-ago),
	}
}

func scenario() []clmmodels.Reading {
	return []clmmodels.Reading{
		at("device-1", 20, 30*time.Minute, "Office"),
		at("device-1", 22, 20*time.Minute, "Office"),
		at("device-1", 25, 10*time.Minute, "Lab"),
		at("device-2", 30, 5*time.Minute, "Garage"),
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc, _ := newService(t, scenario()...)
	ctx := context.Background()

	latest, err := svc.Latest(ctx, "", 10)
	require.NoError(t, err)
	require.Equal(t, 4, latest.Count)
	for i := 1; i < len(latest.Data); i++ {
		assert.True(t, latest.Data[i-1].Timestamp.After(latest.Data[i].Timestamp))
	}

	devices, err := svc.Devices(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, devices.Count)
	assert.Equal(t, "device-1", devices.Devices[0].DeviceID)
	assert.Equal(t, 25.0, devices.Devices[0].LastTemperature)
	assert.Equal(t, "Lab", devices.Devices[0].Location)
	assert.Equal(t, now.Add(-10*time.Minute), devices.Devices[0].LastSeen)
	assert.Equal(t, 30.0, devices.Devices[1].LastTemperature)

	stats, err := svc.Statistics(ctx, "device-1", 24)
	require.NoError(t, err)
	assert.Equal(t, "Last 24 hours", stats.TimeRange)
	require.Len(t, stats.Statistics, 1)
	s := stats.Statistics[0]
	assert.InDelta(t, 22.33, s.AvgTemperature, 0.01)
	assert.Equal(t, 20.0, s.MinTemperature)
	assert.Equal(t, 25.0, s.MaxTemperature)
	assert.Equal(t, int64(3), s.DataPoints)
	assert.Equal(t, "Lab", s.Location)
	assert.Equal(t, now.Add(-10*time.Minute), s.LastReading)
}

func TestLatestLimitDefaultsAndClamp(t *testing.T) {
	var readings []clmmodels.Reading
	for i := 0; i < 150; i++ {
		readings = append(readings, at("d1", 20, time.Duration(i)*time.Second, "Lab"))
	}
	svc, _ := newService(t, readings...)
	ctx := context.Background()

	def, err := svc.Latest(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, def.Count)

	three, err := svc.Latest(ctx, "d1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, three.Count)

	clamped, err := svc.Latest(ctx, "", 500)
	require.NoError(t, err)
	assert.Equal(t, queryCfg.MaxLimit, clamped.Count)
}

func TestRangeEchoesResolvedFilter(t *testing.T) {
	svc, _ := newService(t, scenario()...)
	start, end := now.Add(-25*time.Minute), now.Add(-10*time.Minute)

	result, err := svc.Range(context.Background(), clmmodels.ReadingFilter{DeviceID: "device-1", Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1000, result.Query.Limit)
	assert.Equal(t, "device-1", result.Query.DeviceID)
	for _, r := range result.Data {
		assert.False(t, r.Timestamp.Before(start) || r.Timestamp.After(end))
	}
}

func TestStatisticsWindowExcludesOldReadings(t *testing.T) {
	svc, _ := newService(t,
		at("d1", 10, 3*time.Hour, "Old"),
		at("d1", 18, 50*time.Minute, "Hall"),
		at("d1", 24, 10*time.Minute, "Hall"),
	)

	stats, err := svc.Statistics(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "Last 1 hours", stats.TimeRange)
	require.Len(t, stats.Statistics, 1)
	s := stats.Statistics[0]
	assert.Equal(t, int64(2), s.DataPoints)
	assert.LessOrEqual(t, s.MinTemperature, s.AvgTemperature)
	assert.LessOrEqual(t, s.AvgTemperature, s.MaxTemperature)

	def, err := svc.Statistics(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Last 24 hours", def.TimeRange)
	assert.Equal(t, int64(3), def.Statistics[0].DataPoints)
}

type failingRepo struct {
	interfaces.ReadingRepository
}

func (failingRepo) FindLatest(context.Context, string, int) ([]clmmodels.Reading, error) {
	return nil, interfaces.ErrStorageUnavailable
}

func (failingRepo) LatestPerDevice(context.Context) ([]clmmodels.Reading, error) {
	return nil, interfaces.ErrStorageUnavailable
}

func TestQueryErrorsAreNotPartial(t *testing.T) {
	svc := NewService(failingRepo{}, queryCfg)

	result, err := svc.Latest(context.Background(), "", 5)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, interfaces.ErrStorageUnavailable))

	devices, err := svc.Devices(context.Background())
	assert.Nil(t, devices)
	assert.True(t, errors.Is(err, interfaces.ErrStorageUnavailable))
}
