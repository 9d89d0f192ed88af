package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
)

// Accepted measurement bounds, inclusive
const (
	MinTemperature = -50.0
	MaxTemperature = 100.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0

	// MaxClockSkew is how far ahead of the server clock a device timestamp may be
	MaxClockSkew = 24 * time.Hour

	// MaxEpochSeconds is 9999-12-31T23:59:59Z, the last instant JSON can encode
	MaxEpochSeconds = 253402300799
)

// Kind classifies a validation failure
type Kind string

const (
	MissingField Kind = "MissingField"
	OutOfRange   Kind = "OutOfRange"
	InvalidField Kind = "InvalidField"
)

// ValidationError describes the first constraint a payload violated
type ValidationError struct {
	Kind  Kind
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return "Missing required fields: deviceId, temperature, humidity"
	case OutOfRange:
		switch e.Field {
		case "temperature":
			return fmt.Sprintf("Temperature out of valid range (%g to %g°C)", e.Min, e.Max)
		case "humidity":
			return fmt.Sprintf("Humidity out of valid range (%g to %g%%)", e.Min, e.Max)
		case "timestamp":
			return fmt.Sprintf("Timestamp out of valid range (%.0f to %.0f Unix seconds)", e.Min, e.Max)
		}
		return fmt.Sprintf("%s out of valid range (%g to %g)", e.Field, e.Min, e.Max)
	default:
		return fmt.Sprintf("Invalid value for field %s", e.Field)
	}
}

// Validate checks a device payload and returns the normalized reading.
// now is used when the payload carries no timestamp.
func Validate(p clmmodels.ReadingPayload, now time.Time) (clmmodels.Reading, error) {
	deviceID, ok := p.DeviceID.(string)
	if p.DeviceID == nil || (ok && strings.TrimSpace(deviceID) == "") {
		return clmmodels.Reading{}, &ValidationError{Kind: MissingField, Field: "deviceId"}
	}
	if !ok {
		return clmmodels.Reading{}, &ValidationError{Kind: InvalidField, Field: "deviceId"}
	}
	if p.Temperature == nil {
		return clmmodels.Reading{}, &ValidationError{Kind: MissingField, Field: "temperature"}
	}
	if p.Humidity == nil {
		return clmmodels.Reading{}, &ValidationError{Kind: MissingField, Field: "humidity"}
	}

	temperature, err := bounded("temperature", p.Temperature, MinTemperature, MaxTemperature)
	if err != nil {
		return clmmodels.Reading{}, err
	}
	humidity, err := bounded("humidity", p.Humidity, MinHumidity, MaxHumidity)
	if err != nil {
		return clmmodels.Reading{}, err
	}

	location := clmmodels.DefaultLocation
	if p.Location != nil {
		s, ok := p.Location.(string)
		if !ok {
			return clmmodels.Reading{}, &ValidationError{Kind: InvalidField, Field: "location"}
		}
		if s = strings.TrimSpace(s); s != "" {
			location = s
		}
	}

	// 0 counts as absent, like a missing timestamp
	timestamp := now.UTC()
	if p.Timestamp != nil {
		secs, ok := toFloat(p.Timestamp)
		if !ok || math.IsNaN(secs) {
			return clmmodels.Reading{}, &ValidationError{Kind: InvalidField, Field: "timestamp"}
		}
		latest := float64(now.Add(MaxClockSkew).Unix())
		if secs < 0 || secs > latest {
			return clmmodels.Reading{}, &ValidationError{Kind: OutOfRange, Field: "timestamp", Value: secs, Min: 0, Max: latest}
		}
		if secs > 0 {
			timestamp = FromEpochSeconds(secs)
		}
	}

	return clmmodels.Reading{
		DeviceID:    deviceID,
		Temperature: temperature,
		Humidity:    humidity,
		Location:    location,
		Timestamp:   timestamp,
	}, nil
}

// ValidEpochSeconds reports whether secs lies between the Unix epoch and
// MaxEpochSeconds, the range FromEpochSeconds accepts
func ValidEpochSeconds(secs float64) bool {
	return !math.IsNaN(secs) && secs >= 0 && secs <= MaxEpochSeconds
}

// FromEpochSeconds converts a possibly fractional Unix time to a UTC instant
// with millisecond precision, matching what the store keeps. secs must
// satisfy ValidEpochSeconds.
func FromEpochSeconds(secs float64) time.Time {
	return time.UnixMilli(int64(math.Round(secs * 1000))).UTC()
}

func bounded(field string, raw interface{}, lo, hi float64) (float64, error) {
	v, ok := toFloat(raw)
	if !ok {
		return 0, &ValidationError{Kind: InvalidField, Field: field}
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, &ValidationError{Kind: OutOfRange, Field: field, Value: v, Min: lo, Max: hi}
	}
	return v, nil
}

// toFloat coerces JSON numbers and numeric strings to float64
func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
