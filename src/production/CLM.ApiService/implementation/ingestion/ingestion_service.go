package ingestion

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/validation"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
	metrics "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Metrics"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result is returned for an acknowledged reading
type Result struct {
	ID        primitive.ObjectID `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
}

// Service validates, persists and records incoming readings.
// There is no deduplication: a resubmitted payload is stored again.
type Service struct {
	repo   interfaces.ReadingRepository
	sink   metrics.Sink
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new ingestion service
func NewService(repo interfaces.ReadingRepository, sink metrics.Sink, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: log.WithComponent("ingestion"),
		now:    time.Now,
	}
}

// Ingest runs one payload through validation and persistence. A
// *validation.ValidationError means nothing was written; an error wrapping
// interfaces.ErrStorageUnavailable means the caller may retry.
func (s *Service) Ingest(ctx context.Context, payload clmmodels.ReadingPayload) (*Result, error) {
	reading, err := validation.Validate(payload, s.now())
	if err != nil {
		s.logger.WithError(err).Debug("Rejected sensor reading")
		return nil, err
	}

	reading.CreatedAt = s.now().UTC()
	id, err := s.repo.Insert(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("persist reading from %s: %w", reading.DeviceID, err)
	}

	if s.sink != nil {
		s.sink.RecordReading(reading)
	}

	s.logger.Logger.Info().
		Str("device_id", reading.DeviceID).
		Str("location", reading.Location).
		Float64("temperature", reading.Temperature).
		Float64("humidity", reading.Humidity).
		Msg("Data received")

	return &Result{ID: id, Timestamp: reading.Timestamp}, nil
}
