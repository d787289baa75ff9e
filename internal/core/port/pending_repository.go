package port

import (
	"context"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
)

// PendingRepository stages unverified signups keyed by email.
type PendingRepository interface {
	// Upsert creates the staged record or overwrites the live one for the
	// same email.
	Upsert(ctx context.Context, pending domain.PendingRegistration) error
	GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error)
	// GetByCode looks a record up by its verification code across the whole
	// store, matching the public verify(code) contract.
	GetByCode(ctx context.Context, code string) (*domain.PendingRegistration, error)
	DeleteByEmail(ctx context.Context, email string) error
}
