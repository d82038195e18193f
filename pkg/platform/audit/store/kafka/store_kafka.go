// Package kafka ships audit events to a Kafka topic so downstream security
// tooling can consume the login/session trail.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	id "sigede/pkg/domain"
	"sigede/pkg/platform/audit"
)

// Store appends audit events to a Kafka topic. ListByAccount is not
// supported; reading the trail is the consumer side's job.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to the given seed brokers.
func New(seeds []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AccountID.String()),
		Value: value,
	}
	// Synchronous produce keeps Append's error meaningful; callers that
	// must not block wrap this store in an async publisher.
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit store is write-only")
}

func (s *Store) Close() {
	s.client.Close()
}
