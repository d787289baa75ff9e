package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

// ProfileUpdate carries the optional profile fields a client may change.
// Username and Email apply when non-blank. AvatarURL applies when non-nil,
// so an empty string clears the avatar.
type ProfileUpdate struct {
	Username  string
	Email     string
	AvatarURL *string
}

// Profile loads the account behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return *account, nil
}

// UpdateProfile applies the requested changes and saves the account. An email
// change to an address owned by another account fails with ErrEmailTaken.
func (s *AuthService) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if username := strings.TrimSpace(update.Username); username != "" {
		account.Username = username
	}

	if email := strings.ToLower(strings.TrimSpace(update.Email)); email != "" && email != account.Email {
		existing, err := s.accounts.GetByEmail(ctx, email)
		if err == nil && existing.ID != account.ID {
			return domain.Account{}, ErrEmailTaken
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, fmt.Errorf("lookup account by email: %w", err)
		}
		account.Email = email
	}

	if update.AvatarURL != nil {
		account.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}

	account.UpdatedAt = s.now()

	if err := s.accounts.Save(ctx, *account); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}
	return *account, nil
}
