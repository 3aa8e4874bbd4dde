package rabbitmq

import (
	"context"
	"fmt"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerAlias string

type IRabbitmqConsumer interface {
	StartConsuming(ctx context.Context, handler func(amqp.Delivery)) error
}

type ConsumerRegistry struct {
	consumers map[ConsumerAlias]IRabbitmqConsumer
}

func NewConsumerRegistry() *ConsumerRegistry {
	return &ConsumerRegistry{consumers: map[ConsumerAlias]IRabbitmqConsumer{}}
}

func InitializeConsumerRegistry(conn *amqp.Connection, consumerConfig []RabbitmqConsumerConfig) (*ConsumerRegistry, error) {
	registry := NewConsumerRegistry()

	for _, consumer := range consumerConfig {
		channel, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("open channel for consumer %s: %w", consumer.ConsumerAlias, err)
		}

		registry.Register(consumer.ConsumerAlias, NewConsumer(
			channel,
			consumer.QueueName,
			consumer.ConsumerTag,
		))
	}

	return registry, nil
}

func (cr *ConsumerRegistry) Register(alias ConsumerAlias, consumer IRabbitmqConsumer) {
	cr.consumers[alias] = consumer
}

func (cr *ConsumerRegistry) GetConsumer(alias ConsumerAlias) IRabbitmqConsumer {
	if cr == nil {
		return nil
	}
	return cr.consumers[alias]
}

type amqpConsumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type RabbitmqConsumer struct {
	Channel     amqpConsumeChannel
	QueueName   string
	ConsumerTag string
	Logger      *logger.Logger
}

func NewConsumer(ch amqpConsumeChannel, queueName, consumerTag string) *RabbitmqConsumer {
	return &RabbitmqConsumer{
		Channel:     ch,
		QueueName:   queueName,
		ConsumerTag: consumerTag,
	}
}

// StartConsuming blocks until the delivery channel closes or ctx is done.
func (rc *RabbitmqConsumer) StartConsuming(ctx context.Context, messageHandler func(amqp.Delivery)) error {
	consumerLogger := logger.OrDefault(rc.Logger)

	msgs, err := rc.Channel.Consume(
		rc.QueueName,   // queue
		rc.ConsumerTag, // consumer
		true,           // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("register consumer %s: %w", rc.ConsumerTag, err)
	}

	consumerLogger.Infof("Waiting for messages in queue: %s", rc.QueueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			rc.handle(consumerLogger, messageHandler, d)
		}
	}
}

func (rc *RabbitmqConsumer) handle(consumerLogger *logger.Logger, messageHandler func(amqp.Delivery), d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			consumerLogger.Errorf(
				nil,
				"[%s] Recovered from panic for consumer: %s, %v",
				rc.QueueName,
				rc.ConsumerTag,
				r,
			)
		}
	}()

	consumerLogger.Debugf("[%s] received %d bytes", rc.QueueName, len(d.Body))
	messageHandler(d)
}
