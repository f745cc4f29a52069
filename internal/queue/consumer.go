package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// GameLogFile is the file, inside the consumer's log directory, that
// receives one line per finished game.
const GameLogFile = "games.log"

// Consumer listens to the game.finished queue and appends each event to
// <Dir>/games.log.
type Consumer struct {
	URL string
	Dir string
	Log *zap.Logger
}

// Run dials the broker, declares the durable queue and consumes until ctx is
// cancelled.  Dial failures back off exponentially up to 30s; a dropped
// connection is re-established after a short pause.  Messages that cannot
// be handled are rejected without requeue so a poison message cannot spin.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.Log.With(zap.String("queue", GameFinishedQueue))
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(GameFinishedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, GameFinishedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(c.Dir, d.Body); err != nil {
			c.Log.Error("handle message failed", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one event and appends its log line to dir.
func HandleMessage(dir string, body []byte) error {
	var ev GameFinishedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.GameID == "" {
		return errors.New("event without game_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, GameLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders the single-line, human-friendly log entry for ev.
func FormatLine(ev GameFinishedEvent) string {
	user := "guest"
	if ev.UserID != 0 {
		user = fmt.Sprint(ev.UserID)
	}
	return fmt.Sprintf("[%s] Game finished | game_id=%s | user=%s | source=%s | winner=%s | margin=%d | score=%d:%d | board=%s\n",
		ev.FinishedAt, ev.GameID, user, ev.Source, ev.Winner, ev.Margin, ev.P1Score, ev.P2Score, ev.FinalBoard)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
