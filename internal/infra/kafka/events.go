package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/core/port"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRegistrationStaged publishes auth.registration.staged events. The
// verification code itself never leaves the service.
func (p *EventPublisher) PublishRegistrationStaged(ctx context.Context, event domain.RegistrationStagedEvent) error {
	payload := struct {
		Email         string         `json:"email"`
		Username      string         `json:"username"`
		CodeExpiresAt time.Time      `json:"code_expires_at"`
		StagedAt      time.Time      `json:"staged_at"`
		Resend        bool           `json:"resend"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		Email:         event.Email,
		Username:      event.Username,
		CodeExpiresAt: event.CodeExpiresAt.UTC(),
		StagedAt:      event.StagedAt.UTC(),
		Resend:        event.Resend,
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.registration.staged", "", event.StagedAt, payload)
}

// PublishAccountVerified publishes auth.account.verified events.
func (p *EventPublisher) PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Email      string         `json:"email"`
		Username   string         `json:"username"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Email:      event.Email,
		Username:   event.Username,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.account.verified", event.AccountID, event.VerifiedAt, payload)
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		Email     string         `json:"email"`
		Method    string         `json:"method"`
		LoginAt   time.Time      `json:"login_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Email:     event.Email,
		Method:    event.Method,
		LoginAt:   event.LoginAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.AccountID, event.LoginAt, payload)
}

// PublishOAuthLinked publishes auth.oauth.linked events.
func (p *EventPublisher) PublishOAuthLinked(ctx context.Context, event domain.OAuthLinkedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Provider   string         `json:"provider"`
		ProviderID string         `json:"provider_id"`
		Created    bool           `json:"created"`
		LinkedAt   time.Time      `json:"linked_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Provider:   event.Provider,
		ProviderID: event.ProviderID,
		Created:    event.Created,
		LinkedAt:   event.LinkedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.oauth.linked", event.AccountID, event.LinkedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
