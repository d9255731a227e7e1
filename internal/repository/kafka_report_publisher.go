package repository

import (
	"context"

	"MarketPhase/internal/domain/models"
	drepo "MarketPhase/internal/domain/repository"
)

// messageProducer is the slice of pkg/kafka.Producer the publisher needs.
type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher writes reports to a topic keyed by verdict, so one
// partition carries one verdict's history in order.
type KafkaReportPublisher struct {
	producer messageProducer
	topic    string
}

var _ drepo.ReportPublisher = (*KafkaReportPublisher)(nil)

func NewKafkaReportPublisher(producer messageProducer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.PhaseReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Verdict.String()), r)
}

func (p *KafkaReportPublisher) Close() error { return p.producer.Close() }

// NopReportPublisher is used when Kafka is disabled.
type NopReportPublisher struct{}

func (NopReportPublisher) Publish(context.Context, *models.PhaseReport) error { return nil }

func (NopReportPublisher) Close() error { return nil }
