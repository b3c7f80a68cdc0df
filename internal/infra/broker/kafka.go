// Package broker publishes delivered license alerts as JSON events on Kafka
// so other systems can audit what the bot sent.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"license_notification_bot/internal/app"
)

const eventType = "license.expiry_alert"

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type AlertEvent struct {
	CycleID     string    `json:"cycle_id"`
	BankName    string    `json:"nama_bank"`
	License     string    `json:"license"`
	ExpiredDate string    `json:"expired_date"`
	LastLicense string    `json:"last_license,omitempty"`
	DaysLeft    int       `json:"days_left"`
	Source      string    `json:"source"`
	Text        string    `json:"text"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// KafkaAlertPublisher implements app.AlertPublisher.
type KafkaAlertPublisher struct {
	writer messageWriter
}

func NewKafkaAlertPublisher(brokers []string, topic string) *KafkaAlertPublisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},

		BatchSize:    50,
		BatchTimeout: 10 * time.Millisecond,

		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaAlertPublisher{writer: w}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, alert app.Alert) error {
	msg, err := buildMessage(alert)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.writer.Close()
}

// buildMessage keys events by bank and license so every alert for one
// license lands on the same partition.
func buildMessage(alert app.Alert) (kafka.Message, error) {
	rec := alert.Evaluation.Record
	event := AlertEvent{
		CycleID:     alert.CycleID,
		BankName:    rec.BankName,
		License:     rec.LicenseID,
		ExpiredDate: rec.ExpiredDate,
		LastLicense: rec.LastRenewedDate,
		DaysLeft:    alert.Evaluation.DaysLeft,
		Source:      rec.Source,
		Text:        alert.Text,
		EvaluatedAt: alert.EvaluatedAt.UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode alert event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(rec.BankName + "/" + rec.LicenseID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "cycle-id", Value: []byte(alert.CycleID)},
		},
	}, nil
}
