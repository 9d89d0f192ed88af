package implementation

import (
	"context"
	"fmt"
	"sort"
	"time"

	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoReadingRepository struct {
	client    *mongo.Client
	coll      *mongo.Collection
	opTimeout time.Duration
	retention time.Duration
}

func NewMongoReadingRepository(client *mongo.Client, dbName, collName string, opTimeout, retention time.Duration) *MongoReadingRepository {
	return &MongoReadingRepository{
		client:    client,
		coll:      client.Database(dbName).Collection(collName),
		opTimeout: opTimeout,
		retention: retention,
	}
}

// EnsureIndexes creates the query indexes and the TTL index that expires
// readings once createdAt is older than the retention window. MongoDB's TTL
// monitor deletes lazily, so expiry is eventual.
func (r *MongoReadingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels(r.retention))
	if err != nil {
		return storageError("create indexes", err)
	}
	return nil
}

func indexModels(retention time.Duration) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("deviceId_1_timestamp_-1"),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("timestamp_-1"),
		},
		{
			Keys:    bson.D{{Key: "location", Value: 1}},
			Options: options.Index().SetName("location_1"),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().
				SetName("createdAt_ttl").
				SetExpireAfterSeconds(int32(retention / time.Second)),
		},
	}
}

func (r *MongoReadingRepository) Insert(ctx context.Context, reading clmmodels.Reading) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	reading.ID = primitive.NewObjectID()
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, reading); err != nil {
		return primitive.NilObjectID, storageError("insert reading", err)
	}
	return reading.ID, nil
}

func (r *MongoReadingRepository) FindLatest(ctx context.Context, deviceID string, limit int) ([]clmmodels.Reading, error) {
	return r.find(ctx, clmmodels.ReadingFilter{DeviceID: deviceID, Limit: limit})
}

func (r *MongoReadingRepository) FindRange(ctx context.Context, filter clmmodels.ReadingFilter) ([]clmmodels.Reading, error) {
	return r.find(ctx, filter)
}

func (r *MongoReadingRepository) find(ctx context.Context, filter clmmodels.ReadingFilter) ([]clmmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, storageError("find readings", err)
	}
	defer cursor.Close(ctx)

	readings := make([]clmmodels.Reading, 0)
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, storageError("decode readings", err)
	}
	return readings, nil
}

func (r *MongoReadingRepository) DistinctDevices(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	values, err := r.coll.Distinct(ctx, "deviceId", bson.D{})
	if err != nil {
		return nil, storageError("distinct devices", err)
	}

	devices := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			devices = append(devices, id)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

func (r *MongoReadingRepository) LatestPerDevice(ctx context.Context) ([]clmmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cursor, err := r.coll.Aggregate(ctx, latestPerDevicePipeline())
	if err != nil {
		return nil, storageError("latest per device", err)
	}
	defer cursor.Close(ctx)

	readings := make([]clmmodels.Reading, 0)
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, storageError("decode latest per device", err)
	}
	return readings, nil
}

func (r *MongoReadingRepository) Count(ctx context.Context, deviceID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, buildFilter(clmmodels.ReadingFilter{DeviceID: deviceID}))
	if err != nil {
		return 0, storageError("count readings", err)
	}
	return n, nil
}

func (r *MongoReadingRepository) Aggregate(ctx context.Context, deviceID string, since time.Time) ([]clmmodels.DeviceStatistics, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cursor, err := r.coll.Aggregate(ctx, statisticsPipeline(deviceID, since))
	if err != nil {
		return nil, storageError("aggregate statistics", err)
	}
	defer cursor.Close(ctx)

	stats := make([]clmmodels.DeviceStatistics, 0)
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, storageError("decode statistics", err)
	}
	return stats, nil
}

func (r *MongoReadingRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func (r *MongoReadingRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func buildFilter(filter clmmodels.ReadingFilter) bson.M {
	query := bson.M{}
	if filter.DeviceID != "" {
		query["deviceId"] = filter.DeviceID
	}
	if filter.Start != nil || filter.End != nil {
		ts := bson.M{}
		if filter.Start != nil {
			ts["$gte"] = *filter.Start
		}
		if filter.End != nil {
			ts["$lte"] = *filter.End
		}
		query["timestamp"] = ts
	}
	return query
}

// statisticsPipeline sorts by timestamp before grouping so $last picks the
// location of the newest reading in each group
func statisticsPipeline(deviceID string, since time.Time) mongo.Pipeline {
	match := bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since}}}}
	if deviceID != "" {
		match = append(match, bson.E{Key: "deviceId", Value: deviceID})
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$deviceId"},
			{Key: "avgTemperature", Value: bson.D{{Key: "$avg", Value: "$temperature"}}},
			{Key: "minTemperature", Value: bson.D{{Key: "$min", Value: "$temperature"}}},
			{Key: "maxTemperature", Value: bson.D{{Key: "$max", Value: "$temperature"}}},
			{Key: "avgHumidity", Value: bson.D{{Key: "$avg", Value: "$humidity"}}},
			{Key: "minHumidity", Value: bson.D{{Key: "$min", Value: "$humidity"}}},
			{Key: "maxHumidity", Value: bson.D{{Key: "$max", Value: "$humidity"}}},
			{Key: "dataPoints", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "lastReading", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
			{Key: "location", Value: bson.D{{Key: "$last", Value: "$location"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// latestPerDevicePipeline keeps the whole newest document per device so a
// summary never mixes fields from two readings
func latestPerDevicePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "deviceId", Value: 1}, {Key: "timestamp", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$deviceId"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "deviceId", Value: 1}}}},
	}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", interfaces.ErrStorageUnavailable, op, err)
}
