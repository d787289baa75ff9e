package domain

// TokenPair bundles a freshly issued access and refresh token together with
// their lifetimes in seconds.
type TokenPair struct {
	AccessToken      string
	AccessExpiresIn  int64
	RefreshToken     string
	RefreshExpiresIn int64
}
