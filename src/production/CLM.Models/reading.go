package clmmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultLocation is stored when a device does not report where it is
const DefaultLocation = "Unknown"

// Reading is one immutable sensor observation
type Reading struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DeviceID    string             `bson:"deviceId" json:"deviceId"`
	Temperature float64            `bson:"temperature" json:"temperature"`
	Humidity    float64            `bson:"humidity" json:"humidity"`
	Location    string             `bson:"location" json:"location"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// ReadingPayload is an unvalidated reading as submitted by a device.
// Numeric fields stay untyped so numeric strings can be coerced.
type ReadingPayload struct {
	DeviceID    interface{} `json:"deviceId"`
	Temperature interface{} `json:"temperature"`
	Humidity    interface{} `json:"humidity"`
	Location    interface{} `json:"location"`
	Timestamp   interface{} `json:"timestamp"`
}

// DeviceSummary is the roster view of a device, built from its newest reading
type DeviceSummary struct {
	DeviceID        string    `json:"deviceId"`
	Location        string    `json:"location"`
	LastSeen        time.Time `json:"lastSeen"`
	LastTemperature float64   `json:"lastTemperature"`
	LastHumidity    float64   `json:"lastHumidity"`
}

// SummaryFromReading builds a DeviceSummary from a single reading
func SummaryFromReading(r Reading) DeviceSummary {
	location := r.Location
	if location == "" {
		location = DefaultLocation
	}
	return DeviceSummary{
		DeviceID:        r.DeviceID,
		Location:        location,
		LastSeen:        r.Timestamp,
		LastTemperature: r.Temperature,
		LastHumidity:    r.Humidity,
	}
}
