package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"ms-gatekeeper/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// StartAlerts consumes the alert stream and hands each alert to the handler.
func (c *Consumer) StartAlerts(handler func(alert models.RealtimeAlert)) {
	fmt.Println("Kafka alert consumer started...")

	for {
		msg, err := c.reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("Error reading message: %v\n", err)
			continue
		}

		var alert models.RealtimeAlert
		if err := json.Unmarshal(msg.Value, &alert); err != nil {
			log.Printf("Failed to unmarshal message: %v\n", err)
			continue
		}

		handler(alert)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
