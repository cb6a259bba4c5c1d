// Package events publishes fleet lifecycle notifications over MQTT.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/config"
)

// Event types.
const (
	TripAssigned        = "trip.assigned"
	TripStarted         = "trip.started"
	TripCompleted       = "trip.completed"
	MaintenanceDue      = "vehicle.maintenance_due"
	MaintenanceAdvanced = "vehicle.maintenance_advanced"
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Event is the JSON payload of every message.
type Event struct {
	Type       string      `json:"type"`
	EntityID   string      `json:"entity_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

// New stamps an event with the current time.
func New(eventType, entityID string, data interface{}) Event {
	return Event{Type: eventType, EntityID: entityID, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events to topics of the form
// <prefix>/<type with dots as slashes>/<entity id>.
type MQTTPublisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client Client, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos, timeout: 5 * time.Second}
}

// Connect dials the broker named in cfg.
func Connect(cfg config.MQTT, log logrus.FieldLogger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("mqtt connected")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return NewMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS), nil
}

// Topic returns the topic ev is published on.
func (p *MQTTPublisher) Topic(ev Event) string {
	return p.prefix + "/" + strings.ReplaceAll(ev.Type, ".", "/") + "/" + ev.EntityID
}

// Publish sends ev and waits for the broker to acknowledge it, bounded by
// ctx and the publisher timeout.
func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	token := p.client.Publish(p.Topic(ev), p.qos, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
