package events

import (
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is the topic exchange carrying ledger events.
	DefaultExchange = "ledger.events"
)

// Producer publishes ledger events to a RabbitMQ topic exchange.
type Producer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewProducer connects to the broker and declares the ledger exchange. An
// empty exchange name uses the default.
func NewProducer(url, exchange string) (*Producer, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Producer{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Close releases the channel and connection.
func (p *Producer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish delivers an event with its routing key, e.g. "dispute.filed".
func (p *Producer) Publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.channel.Publish(
		p.exchange,
		event.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}
