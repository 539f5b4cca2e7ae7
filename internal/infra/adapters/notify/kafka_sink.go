package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.AuditSink = (*KafkaAuditSink)(nil)

// producer is the subset of *kafka.Producer the sink needs.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// KafkaAuditSink publishes audit events as JSON, keyed by payment id so
// all events of one payment land on the same partition.
type KafkaAuditSink struct {
	producer producer
	topic    string
	done     chan struct{}
	log      *zerolog.Logger
}

func NewKafkaAuditSink(cfg config.KafkaConfig, logger *zerolog.Logger) (*KafkaAuditSink, error) {
	if cfg.Brokers == "" {
		return nil, errors.New("kafka brokers empty")
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"acks":               "all",
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newKafkaAuditSink(p, cfg.Topic, logger), nil
}

func newKafkaAuditSink(p producer, topic string, logger *zerolog.Logger) *KafkaAuditSink {
	l := logger.With().Str("component", "KafkaAuditSink").Str("topic", topic).Logger()
	s := &KafkaAuditSink{producer: p, topic: topic, done: make(chan struct{}), log: &l}
	go s.drain()
	return s
}

// drain reports asynchronous delivery failures.
func (s *KafkaAuditSink) drain() {
	defer close(s.done)
	for ev := range s.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				s.log.Warn().Err(e.TopicPartition.Error).Str("key", string(e.Key)).Msg("audit event not delivered")
			}
		case kafka.Error:
			s.log.Error().Err(e).Bool("fatal", e.IsFatal()).Msg("kafka error")
		}
	}
}

func (s *KafkaAuditSink) Emit(ctx context.Context, ev model.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := ev.PaymentID
	if key == "" {
		key = ev.ID
	}
	return s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          b,
		Headers:        []kafka.Header{{Key: "kind", Value: []byte(ev.Kind)}},
	}, nil)
}

// Close flushes pending messages for up to five seconds.
func (s *KafkaAuditSink) Close() {
	if n := s.producer.Flush(5000); n > 0 {
		s.log.Warn().Int("pending", n).Msg("audit events dropped on shutdown")
	}
	s.producer.Close()
	<-s.done
}
