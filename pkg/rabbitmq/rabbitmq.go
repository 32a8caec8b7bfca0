package rabbitmq

import (
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"sentinel/config"
)

const dialAttempts = 5

func NewConnection(amqpCfg *config.AMQPConfig) (*amqp091.Connection, error) {

	var conn *amqp091.Connection
	var err error
	for i := range dialAttempts {
		conn, err = amqp091.Dial(amqpCfg.URL)
		if err == nil {
			return conn, nil
		}
		time.Sleep(2 * time.Second)
		log.Warn().Int("attempt", i+1).Msg("rabbitmq reconnection attempt")
	}
	log.Error().Err(err).Int("attempts", dialAttempts).Msg("failed to connect to rabbitmq")
	return nil, errors.New("failed to connect to rabbitmq")
}

// SetupTopology declares the alert exchange and a durable queue bound to
// it, so events survive even when no consumer is attached yet.
func SetupTopology(conn *amqp091.Connection, amqpCfg *config.AMQPConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		amqpCfg.Exchange,
		amqpCfg.ExchangeType,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		amqpCfg.Queue,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if err = ch.QueueBind(
		amqpCfg.Queue,
		amqpCfg.RoutingKey,
		amqpCfg.Exchange,
		false, nil,
	); err != nil {
		return err
	}

	return nil
}
