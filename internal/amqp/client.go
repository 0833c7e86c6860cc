package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishOverride publishes an accepted-override event for the audit
// worker. Publishing is best-effort: the local write already succeeded.
func (c *Client) PublishOverride(ctx context.Context, ev *OverrideEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal override event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         TypeOverride,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish override event: %w", err)
	}

	slog.InfoContext(ctx, "Published override event",
		"line_number", ev.LineNumber,
		"period", ev.Period,
		"version", ev.Version,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishDataCleared announces a full data purge so downstream consumers
// can mark their audit trail accordingly.
func (c *Client) PublishDataCleared(ctx context.Context) error {
	body, err := NewDataClearedEvent().ToJSON()
	if err != nil {
		return fmt.Errorf("marshal data-cleared event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         TypeDataCleared,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish data-cleared event: %w", err)
	}

	slog.InfoContext(ctx, "Published data-cleared event", "exchange", c.exchangeName)
	return nil
}

// ConsumeEvents consumes audit events until the context ends. Handler
// errors requeue the delivery; undecodable payloads are dropped.
func (c *Client) ConsumeEvents(ctx context.Context, onOverride func(*OverrideEvent) error, onCleared func(*DataClearedEvent) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming override events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if delivery.Type == TypeDataCleared {
				ev, err := DataClearedEventFromJSON(delivery.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal data-cleared event", "error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}
				if err := onCleared(ev); err != nil {
					slog.ErrorContext(ctx, "Failed to handle data-cleared event", "error", err)
					delivery.Nack(false, true) // reject and requeue
					continue
				}
				delivery.Ack(false)
				continue
			}

			ev, err := OverrideEventFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal override event", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := onOverride(ev); err != nil {
				slog.ErrorContext(ctx, "Failed to handle override event",
					"error", err,
					"line_number", ev.LineNumber,
					"period", ev.Period)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
