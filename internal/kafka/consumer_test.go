package kafka

import (
	"testing"

	"github.com/skyops/emptylegs/config"
	"github.com/stretchr/testify/assert"
)

func TestNewConsumer(t *testing.T) {
	cfg := config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "emptylegs",
	}

	consumer := NewConsumer(cfg, "booking-notifications")
	assert.NotNil(t, consumer)
	assert.Equal(t, "booking-notifications", consumer.topic)
	assert.NoError(t, consumer.Close())
}

func TestConsumer_Close_Nil(t *testing.T) {
	var consumer *Consumer
	assert.NoError(t, consumer.Close())
}
