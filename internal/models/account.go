package models

import (
	"fmt"
	"time"
)

// AdAccount represents a snapshot of a Facebook ad account.
// One snapshot is kept per external account id and it is overwritten,
// not appended, on each sync.
type AdAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AccountID string    `json:"accountId"`
	Status    int       `json:"status"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate checks if the ad account is valid.
func (a *AdAccount) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("ad account ID is required")
	}
	return nil
}

// Campaign represents an ad campaign under an ad account.
type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Objective   string `json:"objective"`
	CreatedTime string `json:"createdTime"`
}
