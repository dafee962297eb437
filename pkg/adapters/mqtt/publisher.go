// Package mqtt publishes scene events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
)

// DefaultTopicPrefix is prepended to every scene topic.
const DefaultTopicPrefix = "unibase"

// client is the subset of paho.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher implements ports.EventPublisher. Each project gets its own
// retained topic so late subscribers receive the latest scene.
type Publisher struct {
	client  client
	prefix  string
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the publisher.
type Option func(*Publisher)

// WithTopicPrefix overrides DefaultTopicPrefix.
func WithTopicPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithPublishTimeout bounds the wait for the broker acknowledgement.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New wraps an already configured client.
func New(c client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  c,
		prefix:  DefaultTopicPrefix,
		qos:     1,
		timeout: 10 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to brokerURL and returns a publisher plus a disconnect func.
func Dial(brokerURL, clientID string, opts ...Option) (*Publisher, func(), error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c := paho.NewClient(clientOpts)
	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect timeout: %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return New(c, opts...), func() { c.Disconnect(1000) }, nil
}

// Topic returns the topic used for projectID.
func (p *Publisher) Topic(projectID string) string {
	return p.prefix + "/projects/" + projectID + "/scene"
}

// Publish sends event as JSON and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, event domain.SceneEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scene event: %w", err)
	}

	topic := p.Topic(event.ProjectID)
	token := p.client.Publish(topic, p.qos, true, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt publish timeout: %s", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	p.logger.Debug("Scene event published", "topic", topic, "run_id", event.RunID)
	return nil
}
