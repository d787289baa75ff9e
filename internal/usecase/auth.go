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

const (
	loginMethodPassword = "password"
	loginMethodOAuth    = "oauth"
	loginMethodVerify   = "verification"
)

// AuthService orchestrates the registration store, token service, and
// account linker behind the public authentication operations.
type AuthService struct {
	accounts     port.AccountRepository
	pending      port.PendingRepository
	registration *RegistrationService
	tokens       *TokenService
	linker       *AccountLinker
	hasher       port.PasswordHasher
	publisher    port.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthService constructs the authentication facade.
func NewAuthService(
	accounts port.AccountRepository,
	pending port.PendingRepository,
	registration *RegistrationService,
	tokens *TokenService,
	linker *AccountLinker,
	hasher port.PasswordHasher,
	publisher port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	service := &AuthService{
		accounts:     accounts,
		pending:      pending,
		registration: registration,
		tokens:       tokens,
		linker:       linker,
		hasher:       hasher,
		publisher:    publisher,
		logger:       log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Login authenticates password credentials against a verified account. An
// email that is still staged fails with ErrAccountNotVerified so clients can
// route the user back to verification instead of re-registration.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Account, domain.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("password is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if _, pendErr := s.pending.GetByEmail(ctx, email); pendErr == nil {
				return domain.Account{}, domain.TokenPair{}, ErrAccountNotVerified
			}
			return domain.Account{}, domain.TokenPair{}, ErrAccountNotFound
		}
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}

	if account.PasswordHash == "" {
		return domain.Account{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.Account{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if !account.Enabled {
		return domain.Account{}, domain.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.tokens.IssuePair(*account)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	s.publishLogin(ctx, *account, loginMethodPassword)
	return *account, pair, nil
}

// VerifyAndIssueTokens redeems the verification code, promotes the staged
// registration, and signs a token pair for the fresh account.
func (s *AuthService) VerifyAndIssueTokens(ctx context.Context, code string) (domain.Account, domain.TokenPair, error) {
	account, err := s.registration.Verify(ctx, code)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	s.publishLogin(ctx, account, loginMethodVerify)
	return account, pair, nil
}

// Refresh validates the presented refresh token and issues a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	account, err := s.accountForRefresh(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// RefreshIfRotated validates the refresh token and reissues a pair only when
// the token predates the current signing-secret version. A nil pair means
// the token is current and nothing changed.
func (s *AuthService) RefreshIfRotated(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	account, err := s.accountForRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.tokens.ReissueIfKeyRotated(refreshToken, account)
}

// CompleteOAuth resolves the external identity through the account linker
// and signs a token pair for the resulting account.
func (s *AuthService) CompleteOAuth(ctx context.Context, identity ExternalIdentity) (domain.Account, domain.TokenPair, error) {
	account, _, err := s.linker.Resolve(ctx, identity)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	s.publishLogin(ctx, account, loginMethodOAuth)
	return account, pair, nil
}

// Session resolves a bearer access token to its account.
func (s *AuthService) Session(ctx context.Context, accessToken string) (domain.Account, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return *account, nil
}

func (s *AuthService) accountForRefresh(ctx context.Context, refreshToken string) (domain.Account, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.Account{}, ErrInvalidRefreshToken
	}

	subject, err := s.tokens.RefreshSubject(refreshToken)
	if err != nil {
		return domain.Account{}, ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if !s.tokens.ValidateRefresh(refreshToken, *account) {
		return domain.Account{}, ErrInvalidRefreshToken
	}
	return *account, nil
}

func (s *AuthService) publishLogin(ctx context.Context, account domain.Account, method string) {
	if s.publisher == nil {
		return
	}
	event := domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		Method:    method,
		LoginAt:   s.now(),
	}
	if err := s.publisher.PublishLoginSucceeded(ctx, event); err != nil {
		s.logger.Warn("publish login event",
			zap.String("email", logger.MaskEmail(account.Email)), zap.Error(err))
	}
}
