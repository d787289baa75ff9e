package domain

import "time"

// RegistrationStagedEvent represents the payload for auth.registration.staged messages.
type RegistrationStagedEvent struct {
	EventID       string
	Email         string
	Username      string
	CodeExpiresAt time.Time
	StagedAt      time.Time
	Resend        bool
	Metadata      map[string]any
}

// AccountVerifiedEvent represents the payload for auth.account.verified messages.
type AccountVerifiedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	Username   string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// LoginSucceededEvent represents the payload for auth.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID   string
	AccountID string
	Email     string
	Method    string
	LoginAt   time.Time
	Metadata  map[string]any
}

// OAuthLinkedEvent represents the payload for auth.oauth.linked messages.
type OAuthLinkedEvent struct {
	EventID    string
	AccountID  string
	Provider   string
	ProviderID string
	Created    bool
	LinkedAt   time.Time
	Metadata   map[string]any
}
