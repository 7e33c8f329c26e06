package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-gatekeeper/internal/models"
)

const (
	TopicValidationRecorded = "gatekeeper.validation.recorded"
	TopicAlertRaised        = "gatekeeper.alerts.raised"
	TopicOfflineSynced      = "gatekeeper.offline.synced"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
	})
	return &Producer{Writer: writer}
}

// Publish writes a raw message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishValidationRecorded streams every audit record, whatever its outcome,
// keyed by pass so consumers see one pass's attempts in order.
func (p *Producer) PublishValidationRecorded(record models.ValidationRecord) error {
	msgBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.Publish(TopicValidationRecorded, record.PassID, msgBytes)
}

// PublishAlertRaised streams newly derived alerts.
func (p *Producer) PublishAlertRaised(alert models.RealtimeAlert) error {
	msgBytes, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.Publish(TopicAlertRaised, alert.EventID, msgBytes)
}

// PublishOfflineSynced streams the result of an offline batch reconciliation.
func (p *Producer) PublishOfflineSynced(validatorID string, result models.OfflineSyncResult) error {
	msgBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return p.Publish(TopicOfflineSynced, validatorID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
