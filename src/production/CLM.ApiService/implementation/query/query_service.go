package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
)

// ReadingsResult is the {count, data} envelope for latest queries
type ReadingsResult struct {
	Count int                 `json:"count"`
	Data  []clmmodels.Reading `json:"data"`
}

// RangeResult echoes the resolved filter next to the readings
type RangeResult struct {
	Count int                     `json:"count"`
	Query clmmodels.ReadingFilter `json:"query"`
	Data  []clmmodels.Reading     `json:"data"`
}

// StatisticsResult holds per-device statistics for a trailing window
type StatisticsResult struct {
	TimeRange  string                       `json:"timeRange"`
	Statistics []clmmodels.DeviceStatistics `json:"statistics"`
}

// DevicesResult is the device roster
type DevicesResult struct {
	Count   int                       `json:"count"`
	Devices []clmmodels.DeviceSummary `json:"devices"`
}

// Service answers dashboard queries on top of the reading repository
type Service struct {
	repo interfaces.ReadingRepository
	cfg  config.QueryConfig
	now  func() time.Time
}

// NewService creates a new query service
func NewService(repo interfaces.ReadingRepository, cfg config.QueryConfig) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Latest returns at most limit newest readings, optionally for one device.
// A limit of 0 selects the default; larger values are clamped to MaxLimit.
func (s *Service) Latest(ctx context.Context, deviceID string, limit int) (*ReadingsResult, error) {
	limit = s.resolveLimit(limit, s.cfg.DefaultLatestLimit)

	readings, err := s.repo.FindLatest(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("latest readings: %w", err)
	}
	return &ReadingsResult{Count: len(readings), Data: readings}, nil
}

// Range returns readings with start <= timestamp <= end, newest first
func (s *Service) Range(ctx context.Context, filter clmmodels.ReadingFilter) (*RangeResult, error) {
	filter.Limit = s.resolveLimit(filter.Limit, s.cfg.DefaultRangeLimit)

	readings, err := s.repo.FindRange(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("range readings: %w", err)
	}
	return &RangeResult{Count: len(readings), Query: filter, Data: readings}, nil
}

// Statistics aggregates readings from the last hours per device.
// hours <= 0 selects the default window.
func (s *Service) Statistics(ctx context.Context, deviceID string, hours float64) (*StatisticsResult, error) {
	if hours <= 0 {
		hours = float64(s.cfg.DefaultStatsHours)
	}
	since := s.now().UTC().Add(-time.Duration(hours * float64(time.Hour)))

	stats, err := s.repo.Aggregate(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return &StatisticsResult{
		TimeRange:  fmt.Sprintf("Last %s hours", strconv.FormatFloat(hours, 'f', -1, 64)),
		Statistics: stats,
	}, nil
}

// Devices returns one summary per device, each taken from a single reading
func (s *Service) Devices(ctx context.Context) (*DevicesResult, error) {
	latest, err := s.repo.LatestPerDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}

	devices := make([]clmmodels.DeviceSummary, 0, len(latest))
	for _, r := range latest {
		devices = append(devices, clmmodels.SummaryFromReading(r))
	}
	return &DevicesResult{Count: len(devices), Devices: devices}, nil
}

func (s *Service) resolveLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
