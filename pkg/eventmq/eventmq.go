package eventmq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/streadway/amqp"

	"minime/internal/events"
)

// queueName is where celebration events land for out-of-process listeners
// (kiosk displays, classroom dashboards).
const queueName = "minime_events"

// Client forwards selected game events to a RabbitMQ queue. The in-process
// event bus stays the source of truth; this client is an optional bridge and
// the game runs fine without it.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the event queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", queueName, err)
	}

	log.Printf("Event queue client connected, %s declared.", queueName)
	return &Client{conn: conn, channel: ch}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors occurred during event queue client close: %v", errs)
	}
	return nil
}

// PublishEvent publishes one game event as a persistent JSON message.
func (c *Client) PublishEvent(event events.Event) error {
	if c.channel == nil {
		return fmt.Errorf("event queue channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	err = c.channel.Publish(
		"",        // exchange: default
		queueName, // routing key: the queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// ForwardCelebrations subscribes the client to the celebration-worthy event
// types and republishes each onto the queue. Publish failures are logged and
// dropped; the in-process game must never stall on the broker.
func (c *Client) ForwardCelebrations(bus *events.Bus) {
	forward := func(e events.Event) {
		if err := c.PublishEvent(e); err != nil {
			log.Printf("Warning: failed to forward %s event: %v", e.Type, err)
		}
	}
	bus.Subscribe(events.LoginBonusAwarded, forward)
	bus.Subscribe(events.MilestoneReached, forward)
	bus.Subscribe(events.NewStreakRecord, forward)
	bus.Subscribe(events.MeterLow, forward)
}
