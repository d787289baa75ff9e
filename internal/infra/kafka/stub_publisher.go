package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/core/port"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishRegistrationStaged logs auth.registration.staged events.
func (p *StubPublisher) PublishRegistrationStaged(_ context.Context, event domain.RegistrationStagedEvent) error {
	payload := map[string]any{
		"email":           logger.MaskEmail(event.Email),
		"username":        event.Username,
		"code_expires_at": event.CodeExpiresAt,
		"staged_at":       event.StagedAt,
		"resend":          event.Resend,
		"metadata":        event.Metadata,
	}
	p.logEvent("auth.registration.staged", "", event.StagedAt, payload)
	return nil
}

// PublishAccountVerified logs auth.account.verified events.
func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"email":       logger.MaskEmail(event.Email),
		"username":    event.Username,
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("auth.account.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"email":      logger.MaskEmail(event.Email),
		"method":     event.Method,
		"login_at":   event.LoginAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.login.succeeded", event.AccountID, event.LoginAt, payload)
	return nil
}

// PublishOAuthLinked logs auth.oauth.linked events.
func (p *StubPublisher) PublishOAuthLinked(_ context.Context, event domain.OAuthLinkedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"provider":    event.Provider,
		"provider_id": event.ProviderID,
		"created":     event.Created,
		"linked_at":   event.LinkedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("auth.oauth.linked", event.AccountID, event.LinkedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
