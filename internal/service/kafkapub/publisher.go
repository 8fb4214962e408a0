package kafkapub

import (
	"context"
	"fmt"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/config"
	"GapScout/pkg/kafka"
	"GapScout/pkg/logger"
)

const opportunitiesSuffix = ".opportunities"

// Publisher writes each scan report keyed by report ID, plus one message per
// opportunity keyed by symbol on "<topic>.opportunities".
type Publisher struct {
	p     kafka.Publisher
	topic string
	log   *logger.Logger
}

var _ drepo.ResultPublisher = (*Publisher)(nil)

func New(p kafka.Publisher, topic string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{p: p, topic: topic, log: log}
}

// NewFromConfig returns a Kafka-backed publisher, or Nop when Kafka is disabled.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (drepo.ResultPublisher, error) {
	k := cfg.Kafka
	if !k.Enabled || len(k.Brokers) == 0 {
		return Nop{}, nil
	}
	prod, err := kafka.NewProducer(
		kafka.WithBrokers(k.Brokers),
		kafka.WithClientID(k.ClientID),
		kafka.WithRequiredAcks(k.RequiredAcks),
		kafka.WithCompression(k.Compression),
		kafka.WithMaxAttempts(k.MaxAttempts),
		kafka.WithTimeouts(k.WriteTimeout, k.WriteTimeout),
		kafka.WithAsync(k.Async),
		kafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return New(prod, cfg.Scanner.ResultsTopic, log), nil
}

func (p *Publisher) PublishReport(ctx context.Context, r *models.ScanReport) error {
	if r == nil {
		return nil
	}
	if err := p.p.Publish(ctx, p.topic, []byte(r.ID), r); err != nil {
		return fmt.Errorf("publish report %s: %w", r.ID, err)
	}
	if len(r.Opportunities) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(r.Opportunities))
	for _, o := range r.Opportunities {
		msgs = append(msgs, kafka.Message{Key: []byte(o.Gap.Symbol), Value: o})
	}
	if err := p.p.PublishBatch(ctx, p.topic+opportunitiesSuffix, msgs); err != nil {
		return fmt.Errorf("publish opportunities %s: %w", r.ID, err)
	}
	p.log.Debug("report published", logger.String("id", r.ID), logger.Int("opportunities", len(msgs)))
	return nil
}

func (p *Publisher) Close() error { return p.p.Close() }

// Nop discards reports.
type Nop struct{}

func (Nop) PublishReport(context.Context, *models.ScanReport) error { return nil }
func (Nop) Close() error                                            { return nil }
