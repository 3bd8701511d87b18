package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mkondo/contractviz/internal/config"
	"github.com/mkondo/contractviz/pkg/models"
)

// Publisher pushes ingested series to an MQTT broker so external
// dashboards can subscribe to them.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the configured MQTT broker
func New(cfg config.MQTTConfig, topicPrefix string) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("contractviz")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
	}, nil
}

// SeriesPayload is the message body for one published day series.
type SeriesPayload struct {
	Contract string               `json:"contract"`
	Date     string               `json:"date"`
	Unit     string               `json:"unit"`
	Points   []models.SeriesPoint `json:"points"`
}

// PublishSeries sends one contract's day series as a retained message
// on <prefix>/<contract>/<date>.
func (p *Publisher) PublishSeries(contract, date string, points []models.SeriesPoint) error {
	payload := SeriesPayload{
		Contract: contract,
		Date:     date,
		Unit:     "kWh",
		Points:   points,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%s", p.topicPrefix, contract, date)
	token := p.client.Publish(topic, 1, true, body)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
