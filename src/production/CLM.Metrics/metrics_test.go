package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
)

func TestRecordReading(t *testing.T) {
	s := NewPrometheusSink()

	s.RecordReading(clmmodels.Reading{DeviceID: "d1", Location: "Lab", Temperature: 21.5, Humidity: 40})
	s.RecordReading(clmmodels.Reading{DeviceID: "d1", Location: "Lab", Temperature: 22, Humidity: 41})
	s.RecordReading(clmmodels.Reading{DeviceID: "d2", Location: "Unknown", Temperature: -3, Humidity: 80})

	assert.Equal(t, 22.0, testutil.ToFloat64(s.temperature.WithLabelValues("d1", "Lab")))
	assert.Equal(t, 41.0, testutil.ToFloat64(s.humidity.WithLabelValues("d1", "Lab")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.dataPoints.WithLabelValues("d1", "Lab")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.dataPoints.WithLabelValues("d2", "Unknown")))
	assert.Equal(t, -3.0, testutil.ToFloat64(s.temperature.WithLabelValues("d2", "Unknown")))
}

func TestSinksAreIndependent(t *testing.T) {
	a, b := NewPrometheusSink(), NewPrometheusSink()
	a.RecordReading(clmmodels.Reading{DeviceID: "d1", Location: "Lab"})

	assert.Equal(t, 1, testutil.CollectAndCount(a.dataPoints))
	assert.Equal(t, 0, testutil.CollectAndCount(b.dataPoints))
}

func TestHandlerExposition(t *testing.T) {
	s := NewPrometheusSink()
	s.RecordReading(clmmodels.Reading{DeviceID: "d1", Location: "Lab", Temperature: 21.5, Humidity: 40})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `climate_temperature_celsius{device_id="d1",location="Lab"} 21.5`)
	assert.Contains(t, body, `climate_humidity_percent{device_id="d1",location="Lab"} 40`)
	assert.Contains(t, body, `climate_data_points_total{device_id="d1",location="Lab"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
