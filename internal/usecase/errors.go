package usecase

import "errors"

var (
	// ErrEmailTaken indicates a verified account already owns the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken indicates a verified account already owns the username.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrPendingNotFound indicates no staged registration exists for the email.
	ErrPendingNotFound = errors.New("pending registration not found")
	// ErrCodeInvalid indicates the verification code matches no staged registration.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeExpired indicates the code matched but its validity window elapsed.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrAccountNotFound indicates no verified account exists for the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNotVerified indicates the email is still staged behind verification.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrAccountDisabled indicates the account exists but is disabled for login.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken indicates the presented refresh token failed validation.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)
