package clmingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/ingestion"
	"gitlab.com/maplesense1/climate_monitor/src/production/CLM.ApiService/implementation/validation"
	config "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Config"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
)

const (
	queueSize   = 4096
	workerCount = 4
	opTimeout   = 10 * time.Second
)

// Ingester is the part of the ingestion service the listener needs
type Ingester interface {
	Ingest(ctx context.Context, payload clmmodels.ReadingPayload) (*ingestion.Result, error)
}

type message struct {
	topic   string
	payload []byte
}

// Ingestor feeds readings published over MQTT into the ingestion service.
// Payloads use the same JSON shape as POST /api/sensor-data.
type Ingestor struct {
	cfg        config.MQTTConfig
	brokerURL  string
	ingester   Ingester
	mqttClient mqtt.Client
	msgCh      chan message
	wg         sync.WaitGroup
	logger     *logger.Logger

	// guards msgCh against sends after Stop closes it
	mu      sync.RWMutex
	stopped bool
}

func New(cfg *config.Config, ingester Ingester, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg.MQTT,
		brokerURL: cfg.GetMQTTBrokerURL(),
		ingester:  ingester,
		msgCh:     make(chan message, queueSize),
		logger:    log.WithComponent("mqtt-ingestor"),
	}
}

func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.brokerURL).
		SetClientID(i.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.KeepAlive).
		SetPingTimeout(i.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.BrokerUser != "" {
		opts.SetUsername(i.cfg.BrokerUser)
		opts.SetPassword(i.cfg.BrokerPass)
	}

	if i.cfg.UseTLS {
		tlsCfg, err := tlsConfig(i.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.subscriptionTopic()
		i.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.startWorkers(ctx)
	return nil
}

// startWorkers runs the consumers. Cancelling ctx does not stop them: they
// exit once Stop has closed the queue and every queued message is stored.
func (i *Ingestor) startWorkers(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for n := 0; n < workerCount; n++ {
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.worker(base)
		}()
	}
}

// Stop disconnects from the broker (also ending any reconnect loop), then
// waits for the workers to drain queued messages. Messages delivered after
// Stop are dropped.
func (i *Ingestor) Stop() {
	if i.mqttClient != nil {
		i.mqttClient.Disconnect(500)
	}

	i.mu.Lock()
	if !i.stopped {
		i.stopped = true
		close(i.msgCh)
	}
	i.mu.Unlock()

	i.wg.Wait()
}

func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

func (i *Ingestor) subscriptionTopic() string {
	if i.cfg.SharedGroup != "" {
		return fmt.Sprintf("$share/%s/%s", i.cfg.SharedGroup, i.cfg.Topic)
	}
	return i.cfg.Topic
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	i.logger.Logger.Debug().Str("topic", m.Topic()).Msg("Received MQTT message")

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.stopped {
		i.logger.Logger.Warn().Str("topic", m.Topic()).Msg("Ingestor stopped, dropping message")
		return
	}
	select {
	case i.msgCh <- message{topic: m.Topic(), payload: m.Payload()}:
	default:
		i.logger.Logger.Warn().Str("topic", m.Topic()).Msg("Ingest queue full, dropping message")
	}
}

func (i *Ingestor) worker(ctx context.Context) {
	for msg := range i.msgCh {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		_ = i.handle(opCtx, msg.topic, msg.payload)
		cancel()
	}
}

// handle ingests one message and reports failures back to the device on
// the error topic
func (i *Ingestor) handle(ctx context.Context, topic string, raw []byte) error {
	deviceFromTopic := DeviceIDFromTopic(topic)
	log := i.logger.WithField("topic", topic)

	var payload clmmodels.ReadingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Logger.Warn().Err(err).Msg("Invalid JSON payload")
		i.publishError(deviceFromTopic, "invalid_payload", "Payload is not valid JSON")
		return fmt.Errorf("decode payload on %s: %w", topic, err)
	}
	if payload.DeviceID == nil && deviceFromTopic != "" {
		payload.DeviceID = deviceFromTopic
	}

	if _, err := i.ingester.Ingest(ctx, payload); err != nil {
		var vErr *validation.ValidationError
		if errors.As(err, &vErr) {
			i.publishError(deviceFromTopic, "validation_error", vErr.Error())
		} else {
			log.ErrorWithError(err, "Error saving sensor data")
			i.publishError(deviceFromTopic, "storage_error", "Failed to store reading, retry later")
		}
		return err
	}
	return nil
}

// DeviceIDFromTopic returns the second segment of topics shaped like
// climate/<deviceId>/readings, or "" when there is none
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}

// publishError publishes an error message to the error topic for device feedback
func (i *Ingestor) publishError(deviceID, errorType, message string) {
	if !i.IsConnected() {
		return
	}
	if deviceID == "" {
		deviceID = "unknown"
	}

	payloadJSON, err := json.Marshal(map[string]interface{}{
		"error_type": errorType,
		"message":    message,
		"device_id":  deviceID,
		"timestamp":  time.Now().UTC(),
	})
	if err != nil {
		i.logger.Logger.Error().Err(err).Msg("Failed to marshal error payload")
		return
	}

	errorTopic := fmt.Sprintf("%s/%s", i.cfg.ErrorTopic, deviceID)
	token := i.mqttClient.Publish(errorTopic, 1, false, payloadJSON)
	if token.Wait() && token.Error() != nil {
		i.logger.Logger.Error().Err(token.Error()).Str("topic", errorTopic).Msg("Failed to publish error")
	}
}
