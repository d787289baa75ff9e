package domain

import "time"

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
)

// ParseRole maps a stored role value onto the enum, defaulting unknown
// values to the regular role.
func ParseRole(value string) Role {
	if Role(value) == RoleAdmin {
		return RoleAdmin
	}
	return RoleRegular
}

// ProviderLink associates an account with one external OAuth identity.
type ProviderLink struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// Account mirrors the persisted representation in the accounts table.
// PasswordHash is empty for accounts created through OAuth.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Enabled      bool
	AvatarURL    string
	Providers    []ProviderLink
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasProvider reports whether the account already carries the exact
// (provider, providerID) link.
func (a Account) HasProvider(provider, providerID string) bool {
	for _, link := range a.Providers {
		if link.Provider == provider && link.ProviderID == providerID {
			return true
		}
	}
	return false
}

// AddProvider appends a link unless the same (provider, providerID) pair
// is already present. Returns true if the link was added.
func (a *Account) AddProvider(link ProviderLink) bool {
	if a.HasProvider(link.Provider, link.ProviderID) {
		return false
	}
	a.Providers = append(a.Providers, link)
	return true
}

// FirstProvider returns the earliest linked identity. Kept for clients that
// predate multi-provider accounts and expect a single provider field.
func (a Account) FirstProvider() (ProviderLink, bool) {
	if len(a.Providers) == 0 {
		return ProviderLink{}, false
	}
	return a.Providers[0], true
}
