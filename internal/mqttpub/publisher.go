package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/variables"
)

const (
	// publishTimeout bounds how long one publish waits for the broker
	publishTimeout = 5 * time.Second

	// disconnectQuiesce is how long Close lets in-flight messages drain (ms)
	disconnectQuiesce = 250

	qosAtLeastOnce byte = 1
)

// ErrNoBroker is returned by Connect when no broker is configured
var ErrNoBroker = errors.New("mqtt: no broker configured")

// client is the subset of mqtt.Client the publisher uses
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher implements variables.Publisher on top of an MQTT connection
type Publisher struct {
	client client
	topic  string
}

// DefinitionsMessage is the payload published to <topic>/definitions
type DefinitionsMessage struct {
	Definitions []variables.Definition `json:"definitions"`
	At          time.Time              `json:"at"`
}

// ValuesMessage is the payload published to <topic>/values
type ValuesMessage struct {
	Values map[string]string `json:"values"`
	At     time.Time         `json:"at"`
}

// Connect dials the configured broker and returns a Publisher. The
// connection reconnects on its own after it has been established once.
func Connect(ctx context.Context, cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, ErrNoBroker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("ptzlink-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(publishTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logging.Info("MQTT connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return newPublisher(c, cfg.Topic), nil
}

func newPublisher(c client, topic string) *Publisher {
	if topic == "" {
		topic = config.NewFile().MQTT.Topic
	}
	return &Publisher{client: c, topic: topic}
}

// DefinitionsTopic returns the retained definitions topic
func (p *Publisher) DefinitionsTopic() string {
	return p.topic + "/definitions"
}

// ValuesTopic returns the values topic
func (p *Publisher) ValuesTopic() string {
	return p.topic + "/values"
}

// SetDefinitions implements variables.Publisher
func (p *Publisher) SetDefinitions(defs []variables.Definition) {
	if defs == nil {
		defs = []variables.Definition{}
	}
	p.publish(p.DefinitionsTopic(), true, DefinitionsMessage{Definitions: defs, At: time.Now().UTC()})
}

// SetValues implements variables.Publisher. Empty updates are not sent.
func (p *Publisher) SetValues(values map[string]string) {
	if len(values) == 0 {
		return
	}
	p.publish(p.ValuesTopic(), false, ValuesMessage{Values: values, At: time.Now().UTC()})
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}

// publish is fire-and-log: the session must not stall on a slow broker
func (p *Publisher) publish(topic string, retained bool, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.Error("MQTT payload encoding failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	token := p.client.Publish(topic, qosAtLeastOnce, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		logging.Warn("MQTT publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	logging.Debug("MQTT published",
		zap.String("topic", topic),
		zap.Bool("retained", retained),
		zap.Int("bytes", len(payload)),
	)
}
