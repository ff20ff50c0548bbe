package models

import (
	"fmt"
	"time"
)

// User stores the credential record for an authenticated advertiser.
// It is keyed by the Facebook profile id and mutated on every successful
// login; merge-writes never drop fields the incoming record leaves empty.
type User struct {
	FacebookID      string    `json:"facebookId"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ShortLivedToken string    `json:"shortLivedToken,omitempty"`
	LongLivedToken  string    `json:"longLivedToken,omitempty"`
	TokenExpiresAt  time.Time `json:"tokenExpiresAt"`
	LastLogin       time.Time `json:"lastLogin"`
}

// Validate checks if the user record is valid.
func (u *User) Validate() error {
	if u.FacebookID == "" {
		return fmt.Errorf("facebook ID is required")
	}
	return nil
}

// Merge returns a copy of u updated with the non-empty fields of incoming.
func (u User) Merge(incoming User) User {
	merged := u
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Email != "" {
		merged.Email = incoming.Email
	}
	if incoming.ShortLivedToken != "" {
		merged.ShortLivedToken = incoming.ShortLivedToken
	}
	if incoming.LongLivedToken != "" {
		merged.LongLivedToken = incoming.LongLivedToken
	}
	if !incoming.TokenExpiresAt.IsZero() {
		merged.TokenExpiresAt = incoming.TokenExpiresAt
	}
	if !incoming.LastLogin.IsZero() {
		merged.LastLogin = incoming.LastLogin
	}
	return merged
}

// TokenExpired reports whether the stored long-lived token is past its expiry.
func (u *User) TokenExpired(now time.Time) bool {
	return !u.TokenExpiresAt.IsZero() && now.After(u.TokenExpiresAt)
}
