package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers []string          `yaml:"brokers"`
	Topic   string            `yaml:"topic"`
	Topics  map[string]string `yaml:"topics"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes events as JSON, keyed by Event.Key.
type KafkaEmitter struct {
	writer       messageWriter
	defaultTopic string
	topicByEvent map[string]string
}

func NewKafkaEmitter(cfg KafkaConfig) (*KafkaEmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka emitter requires at least one broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = "tema.events"
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		defaultTopic: cfg.Topic,
		topicByEvent: cfg.Topics,
	}, nil
}

func (e *KafkaEmitter) topic(eventType string) string {
	if t, ok := e.topicByEvent[eventType]; ok && t != "" {
		return t
	}
	return e.defaultTopic
}

func (e *KafkaEmitter) message(ev *Event) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	return kafka.Message{
		Topic: e.topic(ev.Type),
		Key:   []byte(ev.Key),
		Value: payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev *Event) error {
	return e.EmitBatch(ctx, []*Event{ev})
}

func (e *KafkaEmitter) EmitBatch(ctx context.Context, evs []*Event) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		m, err := e.message(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if err := e.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}
