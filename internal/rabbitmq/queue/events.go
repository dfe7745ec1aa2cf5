package queue

import (
	"encoding/json"
	"fmt"

	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

type publisher interface {
	PublishWithRetry(body []byte, routingKey, contentType string, strategy retry.Strategy, options ...rabbitmq.PublishingOptions) error
}

// EventPublisher publishes a dispatch event for every notification marked as sent.
type EventPublisher struct {
	publisher  publisher
	routingKey string
}

// NewEventPublisher declares the exchange and a durable queue bound to it
// and returns a publisher for dispatch events.
func NewEventPublisher(ch *rabbitmq.Channel, cfg config.RabbitMQ) (*EventPublisher, error) {
	exchange := rabbitmq.NewExchange(cfg.Exchange, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	q, err := qm.DeclareQueue(cfg.Queue, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare events queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the events queue: %w", err)
	}

	return newEventPublisher(rabbitmq.NewPublisher(ch, exchange.Name()), cfg.RoutingKey), nil
}

func newEventPublisher(p publisher, routingKey string) *EventPublisher {
	return &EventPublisher{publisher: p, routingKey: routingKey}
}

// Publish sends event as JSON.
func (p *EventPublisher) Publish(event model.DispatchEvent, strategy retry.Strategy) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.publisher.PublishWithRetry(body, p.routingKey, "application/json", strategy)
}
