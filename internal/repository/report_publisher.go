package repository

import (
	"context"
	"fmt"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/domain/repository"
	"MarketThermo/pkg/metrics"
)

// MessageProducer is satisfied by *kafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher emits every assembled report as a "report" event
// keyed by its date.
type KafkaReportPublisher struct {
	producer MessageProducer
	topic    string
	metrics  repository.Metrics
}

func NewKafkaReportPublisher(p MessageProducer, topic string, m repository.Metrics) repository.ReportPublisher {
	if m == nil {
		m = metrics.Nop{}
	}
	return &KafkaReportPublisher{producer: p, topic: topic, metrics: m}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, report *models.MarketReport) error {
	if report == nil {
		return nil
	}
	event := models.ReportEvent{Type: "report", Report: report}
	if err := p.producer.Publish(ctx, p.topic, []byte(report.Date), event); err != nil {
		p.metrics.RecordPublish("error")
		return fmt.Errorf("publish report %s: %w", report.Date, err)
	}
	p.metrics.RecordPublish("ok")
	return nil
}

func (p *KafkaReportPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every report; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.MarketReport) error { return nil }
func (NopPublisher) Close() error                                        { return nil }
