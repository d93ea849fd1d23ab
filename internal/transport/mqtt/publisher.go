// Package mqtt fans outbox notifications out to MQTT subscribers (dispatcher
// consoles, driver tablets).
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"trucking-dispatch-core/internal/domain"
)

// ErrNotConnected is returned while the client has no broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Config describes the broker connection.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// Publisher publishes notifications with QoS 1 to <prefix>/<tenant>/<entity kind>.
type Publisher struct {
	client  client
	prefix  string
	timeout time.Duration
}

// Connect dials the broker. It returns nil, nil when no broker is configured.
func Connect(cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, nil
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	c := paho.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return NewPublisherWith(c, cfg.TopicPrefix, cfg.Timeout), nil
}

// NewPublisherWith wraps a connected client.
func NewPublisherWith(c client, prefix string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "dispatch"
	}
	return &Publisher{client: c, prefix: prefix, timeout: timeout}
}

// Topic returns the topic n is published to.
func (p *Publisher) Topic(n domain.Notification) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, n.TenantID, n.Ref.Kind)
}

// Publish sends n and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", n.ID, err)
	}

	token := p.client.Publish(p.Topic(n), 1, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish notification %s: %w", n.ID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish notification %s: timeout after %s", n.ID, p.timeout)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.client.Disconnect(250)
	return nil
}
