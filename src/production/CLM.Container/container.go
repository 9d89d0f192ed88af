package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/controllers"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/health"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/ingestion"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/query"
	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	clmingestor "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Ingestor"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
	metrics "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Metrics"
	implementation "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Repository/Interfaces"
)

// Container manages dependencies and their lifecycle. The store and the
// metrics registry are process-scoped and handed to services explicitly.
type Container struct {
	config *config.Config
	logger *logger.Logger

	repo    interfaces.ReadingRepository
	metrics *metrics.PrometheusSink

	ingestionService *ingestion.Service
	queryService     *query.Service
	healthChecker    *health.HealthChecker
	mqttIngestor     *clmingestor.Ingestor

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions, run in reverse order on Shutdown
	cleanupFuncs []func(ctx context.Context) error
}

// NewContainer loads configuration and creates the logger
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainerWithConfig(cfg, logger.NewLogger(&cfg.Logging)), nil
}

// NewContainerWithConfig builds a container around an existing config and logger
func NewContainerWithConfig(cfg *config.Config, log *logger.Logger) *Container {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Container{
		config:  cfg,
		logger:  log,
		metrics: metrics.NewPrometheusSink(),
	}
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetRepository returns the reading store, connecting on first use
func (c *Container) GetRepository(ctx context.Context) (interfaces.ReadingRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo != nil {
		return c.repo, nil
	}

	switch c.config.Database.Driver {
	case config.StoreDriverMemory:
		repo := implementation.NewMemoryReadingRepository(c.config.Retention.Window)
		if err := repo.StartSweeper(c.config.Retention.SweepInterval); err != nil {
			return nil, fmt.Errorf("failed to start retention sweeper: %w", err)
		}
		c.logger.Warn("Using in-memory store; readings are lost on restart")
		c.repo = repo
	default:
		client, err := health.ConnectMongoWithTimeout(&c.config.Database, c.config.Database.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := implementation.NewMongoReadingRepository(
			client,
			c.config.Database.DBName,
			c.config.Database.Collection,
			c.config.Database.OpTimeout,
			c.config.Retention.Window,
		)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(context.Background())
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		c.logger.Info("Connected to MongoDB")
		c.repo = repo
	}

	c.cleanupFuncs = append(c.cleanupFuncs, c.repo.Close)
	return c.repo, nil
}

// SetRepository injects a store in place of the configured driver
func (c *Container) SetRepository(repo interfaces.ReadingRepository) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo = repo
}

// InitializeServices wires the ingestion, query and health services
func (c *Container) InitializeServices(ctx context.Context) error {
	repo, err := c.GetRepository(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ingestionService = ingestion.NewService(repo, c.metrics, c.logger)
	c.queryService = query.NewService(repo, c.config.Query)
	c.healthChecker = health.NewHealthChecker(repo, c.config.Database.OpTimeout)
	if c.config.MQTT.Enabled {
		c.healthChecker.WithMQTTStatus(c.mqttConnected)
	}
	return nil
}

// Router builds the HTTP handler; InitializeServices must have run
func (c *Container) Router() http.Handler {
	detailed := c.config.IsDevelopment()
	return controllers.NewRouter(c.config, c.logger,
		controllers.NewSensorDataController(c.ingestionService, c.queryService, c.logger, detailed),
		controllers.NewDeviceController(c.queryService, c.logger, detailed),
		controllers.NewHealthController(c.healthChecker, c.metrics.Handler()),
	)
}

// StartMQTTIngestor connects the MQTT listener when it is enabled
func (c *Container) StartMQTTIngestor(ctx context.Context) error {
	if !c.config.MQTT.Enabled {
		return nil
	}

	ing := clmingestor.New(c.config, c.ingestionService, c.logger)
	if err := ing.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MQTT ingestor: %w", err)
	}

	c.mu.Lock()
	c.mqttIngestor = ing
	c.cleanupFuncs = append(c.cleanupFuncs, func(context.Context) error {
		ing.Stop()
		return nil
	})
	c.mu.Unlock()

	c.logger.Info("MQTT ingestor started")
	return nil
}

func (c *Container) mqttConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mqttIngestor != nil && c.mqttIngestor.IsConnected()
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
