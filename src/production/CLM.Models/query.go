package clmmodels

import "time"

// ReadingFilter narrows a range query; zero values mean "no constraint"
type ReadingFilter struct {
	DeviceID string     `json:"deviceId,omitempty"`
	Start    *time.Time `json:"startTime,omitempty"`
	End      *time.Time `json:"endTime,omitempty"`
	Limit    int        `json:"limit"`
}
