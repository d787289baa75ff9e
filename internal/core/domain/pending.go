package domain

import "time"

// PendingRegistration stages a password signup until its verification code
// is redeemed. At most one live record exists per email.
type PendingRegistration struct {
	Email         string
	Username      string
	PasswordHash  string
	Code          string
	CodeExpiresAt time.Time
	CreatedAt     time.Time
}

// IsExpired reports whether the verification code has elapsed its window.
func (p PendingRegistration) IsExpired(at time.Time) bool {
	return at.After(p.CodeExpiresAt)
}
