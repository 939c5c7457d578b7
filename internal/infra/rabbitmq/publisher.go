package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const SummaryRoutingKey = "frames.summary"

// SummaryPublisher publishes run summaries to a topic exchange.
type SummaryPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewSummaryPublisher(url, exchange string) (*SummaryPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &SummaryPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *SummaryPublisher) PublishSummary(ctx context.Context, msg []byte) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		SummaryRoutingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

func (p *SummaryPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
