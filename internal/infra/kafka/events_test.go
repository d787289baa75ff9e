package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "auth",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "timecapsule-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishRegistrationStaged(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	stagedAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.RegistrationStagedEvent{
		EventID:       "event-123",
		Email:         "alice@example.com",
		Username:      "alice",
		CodeExpiresAt: stagedAt.Add(24 * time.Hour),
		StagedAt:      stagedAt,
		Resend:        true,
		Metadata:      map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishRegistrationStaged(context.Background(), event); err != nil {
		t.Fatalf("PublishRegistrationStaged returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.registration.staged" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.registration.staged" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != stagedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["email"]; got != event.Email {
			t.Fatalf("unexpected email: %v", got)
		}
		if got := payload["username"]; got != event.Username {
			t.Fatalf("unexpected username: %v", got)
		}
		if got := payload["resend"]; got != true {
			t.Fatalf("unexpected resend flag: %v", got)
		}

		if _, present := payload["code"]; present {
			t.Fatal("verification code must never appear in the event payload")
		}

		codeExpiresAt, ok := payload["code_expires_at"].(string)
		if !ok {
			t.Fatalf("code_expires_at not a string: %T", payload["code_expires_at"])
		}
		if codeExpiresAt != event.CodeExpiresAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected code_expires_at: %s", codeExpiresAt)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envelopeMetadata["service"] != "timecapsule-auth" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}
		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishOAuthLinked(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	linkedAt := time.Date(2025, 11, 18, 8, 30, 0, 0, time.UTC)
	event := domain.OAuthLinkedEvent{
		EventID:    "evt-001",
		AccountID:  "acc-123",
		Provider:   "github",
		ProviderID: "gh-77",
		Created:    true,
		LinkedAt:   linkedAt,
		Metadata:   map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishOAuthLinked(context.Background(), event); err != nil {
		t.Fatalf("PublishOAuthLinked returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "auth.oauth.linked" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["account_id"]; got != event.AccountID {
			t.Fatalf("unexpected account_id: %v", got)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["provider"]; got != event.Provider {
			t.Fatalf("unexpected provider: %v", got)
		}
		if got := payload["provider_id"]; got != event.ProviderID {
			t.Fatalf("unexpected provider_id: %v", got)
		}
		if got := payload["created"]; got != true {
			t.Fatalf("unexpected created flag: %v", got)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("payload metadata not a map: %T", payload["metadata"])
		}
		if metadata["source"] != "unit-test" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishAssignsEventIDWhenMissing(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	event := domain.LoginSucceededEvent{
		AccountID: "acc-9",
		Email:     "bob@example.com",
		Method:    "password",
		LoginAt:   time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishLoginSucceeded(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		eventID, ok := envelope["event_id"].(string)
		if !ok || eventID == "" {
			t.Fatalf("expected a generated event_id, got %v", envelope["event_id"])
		}
		if got := envelope["version"]; got != schemaVersion {
			t.Fatalf("unexpected schema version: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}
