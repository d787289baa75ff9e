package port

import (
	"context"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishRegistrationStaged(ctx context.Context, event domain.RegistrationStagedEvent) error
	PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishOAuthLinked(ctx context.Context, event domain.OAuthLinkedEvent) error
}
