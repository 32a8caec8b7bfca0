package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"sentinel/pkg/rabbitmq"
)

// AMQPProvider publishes transition events as JSON to a topic exchange so
// downstream consumers (incident tooling, on-call pagers) can react.
type AMQPProvider struct {
	publisher  *rabbitmq.Publisher
	routingKey string
}

func NewAMQPProvider(publisher *rabbitmq.Publisher, routingKey string) *AMQPProvider {
	return &AMQPProvider{publisher: publisher, routingKey: routingKey}
}

func (a *AMQPProvider) Name() string { return "amqp" }

func (a *AMQPProvider) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	return a.publisher.Publish(ctx, a.routingKey, body)
}
