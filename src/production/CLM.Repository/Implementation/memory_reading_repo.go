package implementation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryReadingRepository is a concurrency-safe in-memory reading store.
// Readings are kept sorted by timestamp both globally and per device so
// lookups are binary searches rather than scans.
type MemoryReadingRepository struct {
	mu sync.RWMutex

	all      []clmmodels.Reading
	byDevice map[string][]clmmodels.Reading

	retention time.Duration
	now       func() time.Time
	scheduler *gocron.Scheduler
}

// NewMemoryReadingRepository creates an empty store. Call StartSweeper to
// expire readings older than retention.
func NewMemoryReadingRepository(retention time.Duration) *MemoryReadingRepository {
	return &MemoryReadingRepository{
		byDevice:  make(map[string][]clmmodels.Reading),
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartSweeper schedules the retention sweep every interval
func (r *MemoryReadingRepository) StartSweeper(interval time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(interval).Do(func() { r.Sweep() }); err != nil {
		return err
	}
	s.StartAsync()

	r.mu.Lock()
	r.scheduler = s
	r.mu.Unlock()
	return nil
}

// Sweep deletes readings whose createdAt is older than the retention window
// and returns how many were removed
func (r *MemoryReadingRepository) Sweep() int {
	cutoff := r.now().Add(-r.retention)
	keep := func(rd clmmodels.Reading) bool { return !rd.CreatedAt.Before(cutoff) }

	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.all)
	r.all = filterReadings(r.all, keep)
	for id, readings := range r.byDevice {
		kept := filterReadings(readings, keep)
		if len(kept) == 0 {
			delete(r.byDevice, id)
			continue
		}
		r.byDevice[id] = kept
	}
	return before - len(r.all)
}

func (r *MemoryReadingRepository) Insert(_ context.Context, reading clmmodels.Reading) (primitive.ObjectID, error) {
	reading.ID = primitive.NewObjectID()
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.all = insertSorted(r.all, reading)
	r.byDevice[reading.DeviceID] = insertSorted(r.byDevice[reading.DeviceID], reading)
	return reading.ID, nil
}

func (r *MemoryReadingRepository) FindLatest(ctx context.Context, deviceID string, limit int) ([]clmmodels.Reading, error) {
	return r.FindRange(ctx, clmmodels.ReadingFilter{DeviceID: deviceID, Limit: limit})
}

func (r *MemoryReadingRepository) FindRange(_ context.Context, filter clmmodels.ReadingFilter) ([]clmmodels.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.all
	if filter.DeviceID != "" {
		src = r.byDevice[filter.DeviceID]
	}

	// src is ascending by timestamp; [lo, hi) is the window inside the bounds
	lo, hi := 0, len(src)
	if filter.Start != nil {
		start := *filter.Start
		lo = sort.Search(len(src), func(i int) bool { return !src[i].Timestamp.Before(start) })
	}
	if filter.End != nil {
		end := *filter.End
		hi = sort.Search(len(src), func(i int) bool { return src[i].Timestamp.After(end) })
	}

	out := make([]clmmodels.Reading, 0)
	for i := hi - 1; i >= lo; i-- {
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		out = append(out, src[i])
	}
	return out, nil
}

func (r *MemoryReadingRepository) DistinctDevices(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]string, 0, len(r.byDevice))
	for id := range r.byDevice {
		devices = append(devices, id)
	}
	sort.Strings(devices)
	return devices, nil
}

func (r *MemoryReadingRepository) LatestPerDevice(_ context.Context) ([]clmmodels.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := make([]clmmodels.Reading, 0, len(r.byDevice))
	for _, readings := range r.byDevice {
		latest = append(latest, readings[len(readings)-1])
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].DeviceID < latest[j].DeviceID })
	return latest, nil
}

func (r *MemoryReadingRepository) Count(_ context.Context, deviceID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if deviceID != "" {
		return int64(len(r.byDevice[deviceID])), nil
	}
	return int64(len(r.all)), nil
}

func (r *MemoryReadingRepository) Aggregate(ctx context.Context, deviceID string, since time.Time) ([]clmmodels.DeviceStatistics, error) {
	readings, err := r.FindRange(ctx, clmmodels.ReadingFilter{DeviceID: deviceID, Start: &since})
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*clmmodels.StatisticsAccumulator)
	for _, rd := range readings {
		acc, ok := groups[rd.DeviceID]
		if !ok {
			acc = &clmmodels.StatisticsAccumulator{}
			groups[rd.DeviceID] = acc
		}
		acc.Add(rd)
	}

	stats := make([]clmmodels.DeviceStatistics, 0, len(groups))
	for _, acc := range groups {
		stats = append(stats, acc.Result())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].DeviceID < stats[j].DeviceID })
	return stats, nil
}

func (r *MemoryReadingRepository) Ping(_ context.Context) error {
	return nil
}

func (r *MemoryReadingRepository) Close(_ context.Context) error {
	r.mu.Lock()
	s := r.scheduler
	r.scheduler = nil
	r.mu.Unlock()

	// a running sweep needs mu, so stop outside the lock
	if s != nil {
		s.Stop()
	}
	return nil
}

// insertSorted places rd after any readings with an equal timestamp, so
// arrival order is preserved among ties
func insertSorted(readings []clmmodels.Reading, rd clmmodels.Reading) []clmmodels.Reading {
	i := sort.Search(len(readings), func(i int) bool { return readings[i].Timestamp.After(rd.Timestamp) })
	readings = append(readings, clmmodels.Reading{})
	copy(readings[i+1:], readings[i:])
	readings[i] = rd
	return readings
}

func filterReadings(readings []clmmodels.Reading, keep func(clmmodels.Reading) bool) []clmmodels.Reading {
	out := readings[:0]
	for _, rd := range readings {
		if keep(rd) {
			out = append(out, rd)
		}
	}
	// clear the tail so dropped readings can be collected
	for i := len(out); i < len(readings); i++ {
		readings[i] = clmmodels.Reading{}
	}
	return out
}
