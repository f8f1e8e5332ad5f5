package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// NotificationEvent is published to the notifications topic after a booking
// state transition commits. State transitions are the source of truth;
// delivery is best-effort and handled by the worker consumer.
type NotificationEvent struct {
	Type            string     `json:"type"`
	BookingRef      string     `json:"booking_ref"`
	ContactName     string     `json:"contact_name"`
	ContactPhone    string     `json:"contact_phone"`
	DealSlug        string     `json:"deal_slug"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty"`
	PaymentLink     string     `json:"payment_link,omitempty"`
	TicketNumber    string     `json:"ticket_number,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectionNote   string     `json:"rejection_note,omitempty"`
	// RejectionNoteVisible marks the note as client-facing: the rendered
	// rejection message includes it even for a non-OTHER reason.
	RejectionNoteVisible bool `json:"rejection_note_visible,omitempty"`
}

// InboundMessage arrives on the inbound topic from the messaging gateway:
// a client reply carrying payment evidence.
type InboundMessage struct {
	ContactPhone string `json:"contact_phone"`
	MediaRef     string `json:"media_ref"`
	RawText      string `json:"raw_text"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Printf("publish attempt %d failed: %v", i+1, err)

		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
