package implementation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockRepo(mt *mtest.T) (*MongoReadingRepository, string) {
	repo := NewMongoReadingRepository(mt.Client, mt.DB.Name(), mt.Coll.Name(), time.Second, 30*24*time.Hour)
	return repo, mt.DB.Name() + "." + mt.Coll.Name()
}

func readingDoc(id primitive.ObjectID, device string, temp, hum float64, location string, ts time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "deviceId", Value: device},
		{Key: "temperature", Value: temp},
		{Key: "humidity", Value: hum},
		{Key: "location", Value: location},
		{Key: "timestamp", Value: primitive.NewDateTimeFromTime(ts)},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(ts)},
	}
}

func TestMongoRepositoryAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("insert returns generated id", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := repo.Insert(ctx, clmmodels.Reading{DeviceID: "d1", Temperature: 21, Humidity: 40, Timestamp: ts})
		require.NoError(mt, err)
		assert.False(mt, id.IsZero())
	})

	mt.Run("find decodes readings", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			readingDoc(newer, "d1", 22.5, 41, "Lab", ts),
			readingDoc(older, "d1", 20, 39, "Lab", ts.Add(-time.Minute)),
		))

		readings, err := repo.FindLatest(ctx, "d1", 2)
		require.NoError(mt, err)
		require.Len(mt, readings, 2)
		assert.Equal(mt, newer, readings[0].ID)
		assert.Equal(mt, 22.5, readings[0].Temperature)
		assert.Equal(mt, "Lab", readings[0].Location)
		assert.True(mt, ts.Equal(readings[0].Timestamp))
	})

	mt.Run("aggregate decodes statistics", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "device-1"},
			{Key: "avgTemperature", Value: 22.5},
			{Key: "minTemperature", Value: 20.0},
			{Key: "maxTemperature", Value: 25.0},
			{Key: "avgHumidity", Value: 50.0},
			{Key: "minHumidity", Value: 45.0},
			{Key: "maxHumidity", Value: 55.0},
			{Key: "dataPoints", Value: int32(3)},
			{Key: "lastReading", Value: primitive.NewDateTimeFromTime(ts)},
			{Key: "location", Value: "Attic"},
		}))

		stats, err := repo.Aggregate(ctx, "", ts.Add(-24*time.Hour))
		require.NoError(mt, err)
		require.Len(mt, stats, 1)
		assert.Equal(mt, "device-1", stats[0].DeviceID)
		assert.Equal(mt, int64(3), stats[0].DataPoints)
		assert.Equal(mt, 25.0, stats[0].MaxTemperature)
		assert.Equal(mt, "Attic", stats[0].Location)
		assert.True(mt, ts.Equal(stats[0].LastReading))
	})

	mt.Run("latest per device decodes whole readings", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			readingDoc(primitive.NewObjectID(), "d1", 25, 55, "Lab", ts),
			readingDoc(primitive.NewObjectID(), "d2", 30, 60, "Unknown", ts),
		))

		latest, err := repo.LatestPerDevice(ctx)
		require.NoError(mt, err)
		require.Len(mt, latest, 2)
		assert.Equal(mt, "d1", latest[0].DeviceID)
		assert.Equal(mt, 55.0, latest[0].Humidity)
		assert.Equal(mt, "d2", latest[1].DeviceID)
	})

	mt.Run("distinct devices are sorted", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"d2", "d1"}}))

		devices, err := repo.DistinctDevices(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"d1", "d2"}, devices)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int64(7)}}))

		n, err := repo.Count(ctx, "d1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), n)
	})

	mt.Run("driver errors wrap ErrStorageUnavailable", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		cmdErr := mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(cmdErr),
			mtest.CreateCommandErrorResponse(cmdErr),
			mtest.CreateCommandErrorResponse(cmdErr),
		)

		_, err := repo.FindRange(ctx, clmmodels.ReadingFilter{DeviceID: "d1"})
		assert.True(mt, errors.Is(err, interfaces.ErrStorageUnavailable), "find: %v", err)

		_, err = repo.Aggregate(ctx, "d1", ts)
		assert.True(mt, errors.Is(err, interfaces.ErrStorageUnavailable), "aggregate: %v", err)

		_, err = repo.Insert(ctx, clmmodels.Reading{DeviceID: "d1", Timestamp: ts})
		assert.True(mt, errors.Is(err, interfaces.ErrStorageUnavailable), "insert: %v", err)
	})
}
