package interfaces

import (
	"context"
	"errors"
	"time"

	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrStorageUnavailable is wrapped by every repository error caused by the
// backing store being unreachable, timing out or failing
var ErrStorageUnavailable = errors.New("storage unavailable")

// ReadingRepository is the time-series store for sensor readings.
// Results are always ordered by timestamp, newest first.
type ReadingRepository interface {
	// Write operations
	Insert(ctx context.Context, reading clmmodels.Reading) (primitive.ObjectID, error)

	// Query operations
	FindLatest(ctx context.Context, deviceID string, limit int) ([]clmmodels.Reading, error)
	FindRange(ctx context.Context, filter clmmodels.ReadingFilter) ([]clmmodels.Reading, error)
	DistinctDevices(ctx context.Context) ([]string, error)
	LatestPerDevice(ctx context.Context) ([]clmmodels.Reading, error)
	Count(ctx context.Context, deviceID string) (int64, error)

	// Statistics over readings with timestamp >= since
	Aggregate(ctx context.Context, deviceID string, since time.Time) ([]clmmodels.DeviceStatistics, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
