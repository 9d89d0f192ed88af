package clmmodels

import "time"

// DeviceStatistics holds aggregate values for one device over a window
type DeviceStatistics struct {
	DeviceID       string    `bson:"_id" json:"deviceId"`
	AvgTemperature float64   `bson:"avgTemperature" json:"avgTemperature"`
	MinTemperature float64   `bson:"minTemperature" json:"minTemperature"`
	MaxTemperature float64   `bson:"maxTemperature" json:"maxTemperature"`
	AvgHumidity    float64   `bson:"avgHumidity" json:"avgHumidity"`
	MinHumidity    float64   `bson:"minHumidity" json:"minHumidity"`
	MaxHumidity    float64   `bson:"maxHumidity" json:"maxHumidity"`
	DataPoints     int64     `bson:"dataPoints" json:"dataPoints"`
	LastReading    time.Time `bson:"lastReading" json:"lastReading"`
	Location       string    `bson:"location" json:"location"`
}

// StatisticsAccumulator folds readings of a single device into DeviceStatistics.
// The result does not depend on the order readings are added in.
type StatisticsAccumulator struct {
	stats   DeviceStatistics
	sumTemp float64
	sumHum  float64
}

// Add folds one reading into the accumulator
func (a *StatisticsAccumulator) Add(r Reading) {
	s := &a.stats
	if s.DataPoints == 0 {
		s.DeviceID = r.DeviceID
		s.MinTemperature, s.MaxTemperature = r.Temperature, r.Temperature
		s.MinHumidity, s.MaxHumidity = r.Humidity, r.Humidity
		s.LastReading = r.Timestamp
		s.Location = r.Location
	} else {
		s.MinTemperature = min(s.MinTemperature, r.Temperature)
		s.MaxTemperature = max(s.MaxTemperature, r.Temperature)
		s.MinHumidity = min(s.MinHumidity, r.Humidity)
		s.MaxHumidity = max(s.MaxHumidity, r.Humidity)
		if r.Timestamp.After(s.LastReading) {
			s.LastReading = r.Timestamp
			s.Location = r.Location
		}
	}
	s.DataPoints++
	a.sumTemp += r.Temperature
	a.sumHum += r.Humidity
}

// Result returns the statistics folded so far
func (a *StatisticsAccumulator) Result() DeviceStatistics {
	s := a.stats
	if s.DataPoints > 0 {
		s.AvgTemperature = a.sumTemp / float64(s.DataPoints)
		s.AvgHumidity = a.sumHum / float64(s.DataPoints)
	}
	return s
}
