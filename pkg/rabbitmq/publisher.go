package rabbitmq

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 5 * time.Second

type Publisher struct {
	ch       *amqp091.Channel
	confirms <-chan amqp091.Confirmation
	exchange string
}

// NewPublisher opens a channel in confirm mode so Publish can wait for the
// broker's ack before reporting success.
func NewPublisher(conn *amqp091.Connection, exchange string) (*Publisher, error) {

	if conn == nil {
		return nil, errors.New("AMQP connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, err
	}

	confirms := ch.NotifyPublish(make(chan amqp091.Confirmation, 100))

	return &Publisher{
		ch:       ch,
		confirms: confirms,
		exchange: exchange,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {

	if p.ch == nil {
		return errors.New("AMQP channel is nil")
	}

	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return err
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return errors.New("broker rejected message")
		}
	case <-time.After(confirmTimeout):
		return errors.New("publish confirm timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
