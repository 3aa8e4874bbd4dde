package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"
	amqp "github.com/rabbitmq/amqp091-go"
)

type PublisherAlias string

type IRabbitmqPublisher interface {
	Publish(body utilities.Serializable) error
}

// PublisherRegistry resolves publishers by alias.
type PublisherRegistry struct {
	mu         sync.RWMutex
	publishers map[PublisherAlias]IRabbitmqPublisher
}

func NewPublisherRegistry() *PublisherRegistry {
	return &PublisherRegistry{publishers: map[PublisherAlias]IRabbitmqPublisher{}}
}

func InitializePublisherRegistry(conn *amqp.Connection, publisherConfig []RabbitmqPublishersConfig) (*PublisherRegistry, error) {
	registry := NewPublisherRegistry()

	for _, publisher := range publisherConfig {
		channel, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("open channel for publisher %s: %w", publisher.PublisherAlias, err)
		}

		registry.Register(publisher.PublisherAlias, NewPublisher(
			channel,
			publisher.Exchange,
			publisher.RoutingKey,
		))
	}

	return registry, nil
}

func (pr *PublisherRegistry) Register(alias PublisherAlias, publisher IRabbitmqPublisher) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.publishers[alias] = publisher
}

// GetPublisher returns nil when the alias is not configured.
func (pr *PublisherRegistry) GetPublisher(alias PublisherAlias) IRabbitmqPublisher {
	if pr == nil {
		return nil
	}
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.publishers[alias]
}

type amqpPublishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitmqPublisher struct {
	Channel    amqpPublishChannel
	Exchange   string
	RoutingKey string
}

func NewPublisher(ch amqpPublishChannel, exchange, routingKey string) *RabbitmqPublisher {
	return &RabbitmqPublisher{
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
	}
}

func (rp *RabbitmqPublisher) Publish(body utilities.Serializable) error {
	json, err := body.Serialize()
	if err != nil {
		return err
	}

	return rp.Channel.Publish(
		rp.Exchange,
		rp.RoutingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         json,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}
