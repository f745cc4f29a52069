package service

import (
	"context"
	"encoding/json"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	q "github.com/iliyamo/mancala/internal/queue"
)

// EventPublisher delivers finished-game events.  Implementations must be
// safe for concurrent use.
type EventPublisher interface {
	PublishGameFinished(ctx context.Context, event q.GameFinishedEvent) error
}

// defaultDialTimeout caps connecting to the broker and the AMQP handshake.
const defaultDialTimeout = 3 * time.Second

// AMQPPublisher publishes to RabbitMQ, dialling per message.  Games finish
// rarely enough that holding a channel open is not worth the reconnect
// handling.
type AMQPPublisher struct {
	URL         string
	Log         *zap.Logger
	DialTimeout time.Duration
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log, DialTimeout: defaultDialTimeout}
}

// dial connects within DialTimeout or ctx's deadline, whichever is sooner.
func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// Cleared by the client once the handshake completes.
			if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// PublishGameFinished publishes event to the durable game.finished queue as
// a persistent message.  Errors are logged and returned so the caller can
// choose to ignore them.
func (p *AMQPPublisher) PublishGameFinished(ctx context.Context, event q.GameFinishedEvent) error {
	log := p.Log.With(zap.String("game_id", event.GameID))

	conn, err := p.dial(ctx)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.GameFinishedQueue, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Error("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.GameID,
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", q.GameFinishedQueue, false, false, pub); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}
