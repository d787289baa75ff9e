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

const defaultCodeTTL = 24 * time.Hour

// CodeSource produces one-time verification codes.
type CodeSource interface {
	Generate() (string, error)
}

// RegistrationService owns the staged-signup lifecycle: staging a record
// behind a verification code, resending codes, and promoting staged records
// into verified accounts.
type RegistrationService struct {
	accounts  port.AccountRepository
	pending   port.PendingRepository
	hasher    port.PasswordHasher
	policy    port.PasswordPolicyValidator
	codes     CodeSource
	publisher port.EventPublisher
	codeTTL   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	accounts port.AccountRepository,
	pending port.PendingRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	codes CodeSource,
	publisher port.EventPublisher,
	codeTTL time.Duration,
	log *zap.Logger,
) *RegistrationService {
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	service := &RegistrationService{
		accounts:  accounts,
		pending:   pending,
		hasher:    hasher,
		policy:    policy,
		codes:     codes,
		publisher: publisher,
		codeTTL:   codeTTL,
		logger:    log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// StagedVerification carries the plaintext code for delivery. It must only
// reach the notification dispatcher, never logs.
type StagedVerification struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Signup stages a registration for the email and assigns a fresh code.
// An existing staged record for the same email is overwritten.
func (s *RegistrationService) Signup(ctx context.Context, email, username, password string) (StagedVerification, error) {
	var zero StagedVerification

	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" {
		return zero, fmt.Errorf("email is required")
	}
	if username == "" {
		return zero, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return zero, fmt.Errorf("password is required")
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return zero, err
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return zero, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return zero, fmt.Errorf("lookup account by username: %w", err)
	}

	if s.policy != nil {
		if err := s.policy.Validate(password, email, username); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	return s.stage(ctx, email, username, passwordHash, false)
}

// Resend regenerates the code and expiry for an existing staged record.
// A staged record whose email meanwhile gained a verified account is deleted
// and reported as a conflict.
func (s *RegistrationService) Resend(ctx context.Context, email string) (StagedVerification, error) {
	var zero StagedVerification

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return zero, fmt.Errorf("email is required")
	}

	record, err := s.pending.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrPendingNotFound
		}
		return zero, fmt.Errorf("lookup pending registration: %w", err)
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			if delErr := s.pending.DeleteByEmail(ctx, email); delErr != nil {
				s.logger.Warn("delete orphaned pending registration",
					zap.String("email", logger.MaskEmail(email)), zap.Error(delErr))
			}
		}
		return zero, err
	}

	return s.stage(ctx, email, record.Username, record.PasswordHash, true)
}

// Redeem resolves a verification code to its staged record. Expired codes
// purge the record; emails that meanwhile gained a verified account purge it
// too. The record itself is not deleted on success so a failed promotion can
// be retried.
func (s *RegistrationService) Redeem(ctx context.Context, code string) (*domain.PendingRegistration, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeInvalid
	}

	record, err := s.pending.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, fmt.Errorf("lookup pending registration by code: %w", err)
	}

	if record.IsExpired(s.now()) {
		if delErr := s.pending.DeleteByEmail(ctx, record.Email); delErr != nil {
			s.logger.Warn("delete expired pending registration",
				zap.String("email", logger.MaskEmail(record.Email)), zap.Error(delErr))
		}
		return nil, ErrCodeExpired
	}

	if err := s.ensureEmailFree(ctx, record.Email); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			if delErr := s.pending.DeleteByEmail(ctx, record.Email); delErr != nil {
				s.logger.Warn("delete duplicate pending registration",
					zap.String("email", logger.MaskEmail(record.Email)), zap.Error(delErr))
			}
		}
		return nil, err
	}

	return record, nil
}

// Verify redeems the code and promotes the staged record into an enabled
// account. The staged record is deleted only after the account write
// succeeds.
func (s *RegistrationService) Verify(ctx context.Context, code string) (domain.Account, error) {
	record, err := s.Redeem(ctx, code)
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     record.Username,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		Role:         domain.RoleRegular,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	if err := s.pending.DeleteByEmail(ctx, record.Email); err != nil {
		s.logger.Warn("delete promoted pending registration",
			zap.String("email", logger.MaskEmail(record.Email)), zap.Error(err))
	}

	if s.publisher != nil {
		event := domain.AccountVerifiedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			Email:      account.Email,
			Username:   account.Username,
			VerifiedAt: now,
		}
		if err := s.publisher.PublishAccountVerified(ctx, event); err != nil {
			s.logger.Warn("publish account verified event", zap.Error(err))
		}
	}

	return account, nil
}

func (s *RegistrationService) stage(ctx context.Context, email, username, passwordHash string, resend bool) (StagedVerification, error) {
	var zero StagedVerification

	code, err := s.codes.Generate()
	if err != nil {
		return zero, fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.codeTTL)
	record := domain.PendingRegistration{
		Email:         email,
		Username:      username,
		PasswordHash:  passwordHash,
		Code:          code,
		CodeExpiresAt: expiresAt,
		CreatedAt:     now,
	}

	if err := s.pending.Upsert(ctx, record); err != nil {
		return zero, fmt.Errorf("store pending registration: %w", err)
	}

	if s.publisher != nil {
		event := domain.RegistrationStagedEvent{
			EventID:       uuid.NewString(),
			Email:         email,
			Username:      username,
			CodeExpiresAt: expiresAt,
			StagedAt:      now,
			Resend:        resend,
		}
		if err := s.publisher.PublishRegistrationStaged(ctx, event); err != nil {
			s.logger.Warn("publish registration staged event", zap.Error(err))
		}
	}

	s.logger.Info("registration staged",
		zap.String("email", logger.MaskEmail(email)),
		zap.Bool("resend", resend),
		zap.Time("code_expires_at", expiresAt),
	)

	return StagedVerification{Email: email, Code: code, ExpiresAt: expiresAt}, nil
}

func (s *RegistrationService) ensureEmailFree(ctx context.Context, email string) error {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup account by email: %w", err)
	}
	return nil
}
