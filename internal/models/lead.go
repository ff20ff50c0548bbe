package models

import (
	"fmt"
	"time"
)

// Lead represents a single normalized lead-form submission.
//
// ID is the Graph API lead id and is the unique key within a user's lead
// collection: re-importing the same id merges into the existing record
// instead of duplicating it. CreatedTime is source-provided and immutable;
// ImportedAt is stamped server-side on every persist.
type Lead struct {
	ID           string            `json:"id"`
	CreatedTime  string            `json:"createdTime"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	FormID       string            `json:"formId,omitempty"`
	ImportedAt   time.Time         `json:"importedAt,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// Validate checks if the lead is valid.
func (l *Lead) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("lead ID is required")
	}
	return nil
}

// Merge returns a copy of l updated with the fields of incoming.
// Standard fields are latest-write-wins; custom fields are unioned with
// the incoming value winning per key. CreatedTime is kept from the
// existing record when already set.
func (l Lead) Merge(incoming Lead) Lead {
	merged := incoming
	if l.CreatedTime != "" {
		merged.CreatedTime = l.CreatedTime
	}
	if len(l.CustomFields) > 0 {
		fields := make(map[string]string, len(l.CustomFields)+len(incoming.CustomFields))
		for k, v := range l.CustomFields {
			fields[k] = v
		}
		for k, v := range incoming.CustomFields {
			fields[k] = v
		}
		merged.CustomFields = fields
	}
	return merged
}

// LeadForm represents a lead-generation form attached to an ad account.
type LeadForm struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	LeadsCount  int    `json:"leadsCount"`
	CreatedTime string `json:"createdTime"`
}
