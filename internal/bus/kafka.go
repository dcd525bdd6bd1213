package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes events to Kafka topics, one topic per Event.Topic(), keyed
// by Event.Key() so per-owner ordering holds within a partition.
type Kafka struct {
	client *kgo.Client
}

// NewKafka connects a producer to the given brokers.
func NewKafka(brokers []string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client}, nil
}

var _ Publisher = (*Kafka)(nil)

// Publish produces the event synchronously so callers observe broker errors.
func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: ev.Topic(),
		Key:   []byte(ev.Key()),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", ev.Topic(), err)
	}
	return nil
}

// Close flushes and shuts down the producer.
func (k *Kafka) Close() {
	k.client.Close()
}
