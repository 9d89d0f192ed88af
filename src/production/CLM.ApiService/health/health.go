package health

import (
	"context"
	"fmt"
	"time"

	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Status is the body served on /health
type Status struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Uptime           float64   `json:"uptime"`
	StorageConnected bool      `json:"storageConnected"`
	MQTTConnected    *bool     `json:"mqttConnected,omitempty"`
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	repo      interfaces.ReadingRepository
	startedAt time.Time
	timeout   time.Duration
	mqtt      func() bool
}

// NewHealthChecker creates a new health checker; uptime counts from now
func NewHealthChecker(repo interfaces.ReadingRepository, timeout time.Duration) *HealthChecker {
	return &HealthChecker{repo: repo, startedAt: time.Now(), timeout: timeout}
}

// WithMQTTStatus adds the broker connection state to the health body
func (h *HealthChecker) WithMQTTStatus(connected func() bool) *HealthChecker {
	h.mqtt = connected
	return h
}

// GetHealthStatus reports process uptime and whether the store answers a ping.
// The process is reported healthy even when storage is down so that
// orchestrators do not restart it for a database outage.
func (h *HealthChecker) GetHealthStatus(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := Status{
		Status:           "healthy",
		Timestamp:        time.Now().UTC(),
		Uptime:           time.Since(h.startedAt).Seconds(),
		StorageConnected: h.repo.Ping(ctx) == nil,
	}
	if h.mqtt != nil {
		connected := h.mqtt()
		status.MQTTConnected = &connected
	}
	return status
}

// ConnectMongoWithTimeout creates a MongoDB client and verifies it with a ping
func ConnectMongoWithTimeout(cfg *config.DatabaseConfig, timeout time.Duration) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.OpTimeout).
		SetConnectTimeout(timeout).
		SetMaxPoolSize(cfg.MaxPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	return client, nil
}
