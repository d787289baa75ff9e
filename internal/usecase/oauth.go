package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/core/port"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/logger"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

// ExternalIdentity carries the profile attributes an OAuth provider reported
// for the authenticated user. Email, Name, Login, and AvatarURL may be empty
// depending on the provider.
type ExternalIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Login      string
	AvatarURL  string
}

// AccountLinker resolves an external identity to exactly one account and
// merges the claimed profile data into it.
type AccountLinker struct {
	accounts  port.AccountRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountLinker constructs an AccountLinker.
func NewAccountLinker(accounts port.AccountRepository, publisher port.EventPublisher, log *zap.Logger) *AccountLinker {
	if log == nil {
		log = zap.NewNop()
	}
	linker := &AccountLinker{
		accounts:  accounts,
		publisher: publisher,
		logger:    log,
	}
	linker.now = func() time.Time { return time.Now().UTC() }
	return linker
}

// WithClock overrides the linker clock for deterministic tests.
func (l *AccountLinker) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Resolve maps the identity to an account. An exact (provider, providerID)
// link always wins over an email match, so a second provider claiming the
// same email cannot take over an account already linked elsewhere unless the
// email genuinely resolves to it. When neither matches, a new enabled
// account is created. The merged account is persisted with an id-keyed
// write, so the in-memory object is completed before storing.
func (l *AccountLinker) Resolve(ctx context.Context, identity ExternalIdentity) (domain.Account, bool, error) {
	if identity.Provider == "" || identity.ProviderID == "" {
		return domain.Account{}, false, fmt.Errorf("provider and provider id are required")
	}

	email := l.resolveEmail(identity)

	account, created, err := l.findOrCreate(ctx, identity, email)
	if err != nil {
		return domain.Account{}, false, err
	}

	now := l.now()
	linkAdded := account.AddProvider(domain.ProviderLink{
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		Email:      identity.Email,
		Name:       firstNonEmpty(identity.Name, identity.Login),
	})
	if account.Email == "" {
		account.Email = email
	}
	if account.AvatarURL == "" && identity.AvatarURL != "" {
		account.AvatarURL = identity.AvatarURL
	}
	// OAuth success proves control of the identity, so the account is
	// unconditionally enabled.
	account.Enabled = true
	account.UpdatedAt = now

	if created {
		account.CreatedAt = now
		if err := l.accounts.Create(ctx, account); err != nil {
			return domain.Account{}, false, fmt.Errorf("create linked account: %w", err)
		}
	} else {
		if err := l.accounts.Save(ctx, account); err != nil {
			return domain.Account{}, false, fmt.Errorf("save linked account: %w", err)
		}
	}

	if l.publisher != nil && (created || linkAdded) {
		event := domain.OAuthLinkedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			Provider:   identity.Provider,
			ProviderID: identity.ProviderID,
			Created:    created,
			LinkedAt:   now,
		}
		if err := l.publisher.PublishOAuthLinked(ctx, event); err != nil {
			l.logger.Warn("publish oauth linked event", zap.Error(err))
		}
	}

	l.logger.Info("oauth identity resolved",
		zap.String("provider", identity.Provider),
		zap.String("email", logger.MaskEmail(account.Email)),
		zap.Bool("created", created),
		zap.Bool("link_added", linkAdded),
	)

	return account, created, nil
}

func (l *AccountLinker) findOrCreate(ctx context.Context, identity ExternalIdentity, email string) (domain.Account, bool, error) {
	byLink, err := l.accounts.GetByProvider(ctx, identity.Provider, identity.ProviderID)
	if err == nil {
		return *byLink, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, false, fmt.Errorf("lookup account by provider: %w", err)
	}

	byEmail, err := l.accounts.GetByEmail(ctx, email)
	if err == nil {
		return *byEmail, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, false, fmt.Errorf("lookup account by email: %w", err)
	}

	name := firstNonEmpty(identity.Name, identity.Login, localPart(email))
	account := domain.Account{
		ID:       uuid.NewString(),
		Username: name,
		Email:    email,
		Role:     domain.RoleRegular,
		Enabled:  true,
	}
	return account, true, nil
}

// resolveEmail falls back to a deterministic synthetic address when the
// provider reports none, so every external identity maps to a resolvable
// email.
func (l *AccountLinker) resolveEmail(identity ExternalIdentity) string {
	if identity.Email != "" {
		return identity.Email
	}
	local := firstNonEmpty(identity.Login, identity.ProviderID)
	return fmt.Sprintf("%s@%s.local", local, identity.Provider)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func localPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
