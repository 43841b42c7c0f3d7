package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const capacityQueue = "lesson.capacity"

// RabbitMQ publishes capacity updates to a durable queue. A fresh
// connection is dialed per publish so a broker restart never leaves a
// dead channel behind.
type RabbitMQ struct {
	url string
	log *zap.Logger
}

func NewRabbitMQ(url string, log *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		url: url,
		log: log.With(zap.String("component", "capacity_broadcast")),
	}
}

func (b *RabbitMQ) PublishCapacity(ctx context.Context, update CapacityUpdate) error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(capacityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal capacity update: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", capacityQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish capacity update: %w", err)
	}

	b.log.Debug("capacity update published",
		zap.Int64("lesson_id", update.LessonID),
		zap.Int("paid", update.PaidCount),
		zap.Int("unpaid_active", update.UnpaidActiveCount))

	return nil
}
