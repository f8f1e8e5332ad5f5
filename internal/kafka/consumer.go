package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/skyops/emptylegs/config"
)

// Consumer reads one topic as a member of the service's shared consumer
// group. Handler errors are logged and the message is skipped: a payload the
// handler rejects now will not fare better on redelivery, and one bad
// message must not stall the notifications behind it.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

func NewConsumer(cfg config.KafkaConfig, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		topic: topic,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume blocks delivering messages to handler until the context is
// canceled or the reader fails; only those two conditions end the loop.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			log.Printf("consume %s offset %d: %v", c.topic, msg.Offset, err)
		}
	}
}
