package usecase

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
)

const refreshTokenType = "refresh"

// ErrMissingSigningSecret indicates token issuance is not configured.
var ErrMissingSigningSecret = errors.New("jwt signing secret is not configured")

// AccessClaims exposes the identity claims carried by an access token.
type AccessClaims struct {
	AccountID string
	Email     string
	Role      domain.Role
	ExpiresAt time.Time
}

type accessTokenClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type refreshTokenClaims struct {
	TokenType string `json:"token_type"`
	Kid       string `json:"kid"`
	jwt.RegisteredClaims
}

// TokenService issues and validates self-contained HS256 tokens. The signing
// secret carries an opaque version label; refresh tokens record it in their
// kid claim so a configuration change can be detected for proactive reissue.
// The label is not used for multi-key verification.
type TokenService struct {
	secret        []byte
	secretVersion string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewTokenService constructs a TokenService from the JWT settings. The
// configured secret is base64-encoded.
func NewTokenService(cfg config.JWTSettings, log *zap.Logger) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSigningSecret
	}
	secret, err := base64.StdEncoding.DecodeString(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode jwt secret: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	version := cfg.SecretVersion
	if version == "" {
		version = "1"
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}

	service := &TokenService{
		secret:        secret,
		secretVersion: version,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		logger:        log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service, nil
}

// WithClock overrides the service clock for deterministic tests.
func (s *TokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SecretVersion returns the label stamped into refresh tokens.
func (s *TokenService) SecretVersion() string {
	return s.secretVersion
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccessToken signs an access token for the account. The subject is the
// account email; id, email, and role ride along as custom claims.
func (s *TokenService) IssueAccessToken(account domain.Account) (string, error) {
	now := s.now()
	claims := accessTokenClaims{
		ID:    account.ID,
		Email: account.Email,
		Role:  string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return s.sign(claims)
}

// IssueRefreshToken signs a refresh token carrying the token_type marker and
// the current secret-version label.
func (s *TokenService) IssueRefreshToken(account domain.Account) (string, error) {
	now := s.now()
	claims := refreshTokenClaims{
		TokenType: refreshTokenType,
		Kid:       s.secretVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	return s.sign(claims)
}

// IssuePair signs a fresh access and refresh token for the account.
func (s *TokenService) IssuePair(account domain.Account) (domain.TokenPair, error) {
	access, err := s.IssueAccessToken(account)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(account)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  int64(s.accessTTL.Seconds()),
		RefreshToken:     refresh,
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
	}, nil
}

// ValidateAccess reports whether the token is a valid access token for the
// expected principal. Malformed or unverifiable tokens are simply invalid.
func (s *TokenService) ValidateAccess(token, expectedEmail string) bool {
	var claims accessTokenClaims
	if err := s.parse(token, &claims); err != nil {
		return false
	}
	return claims.Subject != "" && claims.Subject == expectedEmail
}

// ValidateRefresh reports whether the token is a valid refresh token for the
// account.
func (s *TokenService) ValidateRefresh(token string, account domain.Account) bool {
	var claims refreshTokenClaims
	if err := s.parse(token, &claims); err != nil {
		return false
	}
	if claims.TokenType != refreshTokenType {
		return false
	}
	return claims.Subject != "" && claims.Subject == account.Email
}

// ParseAccess validates an access token and returns its identity claims.
func (s *TokenService) ParseAccess(token string) (*AccessClaims, error) {
	var claims accessTokenClaims
	if err := s.parse(token, &claims); err != nil {
		return nil, err
	}
	result := &AccessClaims{
		AccountID: claims.ID,
		Email:     claims.Email,
		Role:      domain.ParseRole(claims.Role),
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

// RefreshSubject extracts the subject of a refresh token after full
// validation. Callers use it to look the account up before re-validating
// against the loaded record.
func (s *TokenService) RefreshSubject(token string) (string, error) {
	var claims refreshTokenClaims
	if err := s.parse(token, &claims); err != nil {
		return "", err
	}
	if claims.TokenType != refreshTokenType || claims.Subject == "" {
		return "", fmt.Errorf("not a refresh token")
	}
	return claims.Subject, nil
}

// ReissueIfKeyRotated returns a brand-new token pair when the refresh token
// was issued under a different secret version than the current one. A token
// without an extractable kid is treated as current. The caller must have
// validated the token already.
func (s *TokenService) ReissueIfKeyRotated(refreshToken string, account domain.Account) (*domain.TokenPair, error) {
	kid := s.extractKid(refreshToken)
	if kid == "" || kid == s.secretVersion {
		return nil, nil
	}

	s.logger.Info("reissuing tokens after secret rotation",
		zap.String("stale_kid", kid),
		zap.String("current_kid", s.secretVersion),
	)

	pair, err := s.IssuePair(account)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSigningSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}

// extractKid reads the kid claim without requiring a verifiable token.
// Extraction failure is deliberately treated as "no kid".
func (s *TokenService) extractKid(token string) string {
	var claims refreshTokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Kid
}
