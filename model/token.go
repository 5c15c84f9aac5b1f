package model

import "time"

// ProviderToken is a persisted OAuth credential for one provider connection,
// keyed by (Provider, RealmID). RealmID is the provider's tenant identifier
// (e.g. the accounting company id); providers without tenancy use a fixed
// realm of "default". Persisting tokens keeps connections alive across
// process restarts.
type ProviderToken struct {
	ID           int64     `json:"-"`
	Provider     string    `json:"provider"`
	RealmID      string    `json:"realm_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token is past (or within a minute of)
// its expiry.
func (t *ProviderToken) Expired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt.Add(-time.Minute))
}
