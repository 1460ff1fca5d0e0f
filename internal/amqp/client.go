// Package amqp connects the ledger to RabbitMQ: expense events flow out for
// downstream consumers, and the monthly rollover worker is triggered by a
// month-tick message.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	exchangeName  string
	eventsQueue   string
	rolloverQueue string
}

func NewClient(url, exchangeName, eventsQueue, rolloverQueue string) (*Client, error) {
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
		conn:          conn,
		channel:       channel,
		exchangeName:  exchangeName,
		eventsQueue:   eventsQueue,
		rolloverQueue: rolloverQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
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

	for _, queue := range []string{c.eventsQueue, c.rolloverQueue} {
		if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key doubles as the queue name on a direct exchange.
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishExpenseEvent announces a ledger change to the events queue.
func (c *Client) PublishExpenseEvent(ctx context.Context, action, expenseID, groupID string) error {
	body, err := NewExpenseEventMessage(action, expenseID, groupID).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal expense event: %w", err)
	}
	if err := c.publish(ctx, c.eventsQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published expense event",
		"action", action,
		"expense_id", expenseID,
		"group_id", groupID)
	return nil
}

// PublishMonthTick triggers the rollover worker.
func (c *Client) PublishMonthTick(ctx context.Context, month, year int) error {
	body, err := NewMonthTickMessage(month, year).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal month tick: %w", err)
	}
	if err := c.publish(ctx, c.rolloverQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published month tick", "month", month, "year", year)
	return nil
}

// ConsumeMonthTicks delivers month-tick messages to handler until ctx is
// cancelled. Failed handling requeues the delivery; rollover is idempotent,
// so redelivery is safe.
func (c *Client) ConsumeMonthTicks(ctx context.Context, handler func(context.Context, *MonthTickMessage) error) error {
	msgs, err := c.channel.Consume(
		c.rolloverQueue, // queue
		"",              // consumer
		false,           // auto-ack off, we ack manually
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming month ticks", "queue", c.rolloverQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping month tick consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := MonthTickMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal month tick", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle month tick",
					"error", err,
					"month", msg.Month,
					"year", msg.Year)
				delivery.Nack(false, true)
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
