package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// deliveryTimeout fails records the brokers have not acknowledged in time.
const deliveryTimeout = 10 * time.Second

// KafkaConfig selects the brokers and the topic events are produced to.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// KafkaPublisher produces events as JSON records keyed by Event.Key.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "botecopro"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	return &KafkaPublisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Publish produces the event and waits for broker acknowledgement or ctx expiry.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.Type, err)
	}

	p.logger.Debug("event published", zap.String("type", event.Type), zap.String("key", event.Key))
	return nil
}

// Ping checks that at least one broker answers.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
