package port

import (
	"context"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
)

// AccountRepository exposes persistence behavior for verified accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*domain.Account, error)
	// Save replaces the stored account keyed by id, including its provider
	// links. The caller must pass a fully merged account.
	Save(ctx context.Context, account domain.Account) error
}
