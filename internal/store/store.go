// Package store implements the persistence gateway for user credentials,
// ad-account snapshots, leads and sessions.
package store

import (
	"context"

	"github.com/leadsync/leadsync/internal/models"
)

const (
	// maxWriteGroupSize caps the number of operations committed in one
	// atomic write group. The backend limit is 500; headroom is kept.
	maxWriteGroupSize = 450
)

// Store defines the persistence operations used by the service.
//
// All writes are merge-writes: re-persisting a record with the same key
// updates fields without dropping ones the incoming record leaves empty,
// and lead custom fields are unioned with latest-write-wins per field.
// Store failures propagate to the caller unchanged; there are no retries,
// and write groups committed before a failure stay committed.
type Store interface {
	// SaveUser merge-writes a user credential record keyed by Facebook ID.
	SaveUser(ctx context.Context, user *models.User) error
	// GetUser returns the user record, or nil when none exists.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// GetUserToken returns the stored long-lived token for a user.
	// A missing user record yields an empty token, not an error.
	GetUserToken(ctx context.Context, userID string) (string, error)

	// SaveAdAccounts replaces the snapshot for each given account in a
	// single atomic write group.
	SaveAdAccounts(ctx context.Context, userID string, accounts []models.AdAccount) error
	// GetAdAccounts returns all ad-account snapshots for a user.
	GetAdAccounts(ctx context.Context, userID string) ([]models.AdAccount, error)

	// SaveLeads merge-writes leads keyed by lead id, stamping the form id
	// and the import time. Writes are flushed in groups of at most 450
	// operations; an empty input is a logged no-op.
	SaveLeads(ctx context.Context, userID, formID string, leads []models.Lead) error
	// GetLeads returns all leads for a user ordered by creation time
	// descending. A missing import timestamp is backfilled with the
	// current time at read time; the backfill is never stored.
	GetLeads(ctx context.Context, userID string) ([]models.Lead, error)
	// CountLeads returns the number of leads stored for a user.
	CountLeads(ctx context.Context, userID string) (int, error)
	// DeleteAllLeads removes the user's entire lead collection and
	// returns the number of deleted records.
	DeleteAllLeads(ctx context.Context, userID string) (int, error)

	// Session operations back the cookie-session auth layer.
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases underlying resources.
	Close() error
}

// chunkLeads splits leads into write groups of at most size operations.
// Persisting N leads yields ceil(N/size) groups.
func chunkLeads(leads []models.Lead, size int) [][]models.Lead {
	if len(leads) == 0 {
		return nil
	}
	groups := make([][]models.Lead, 0, (len(leads)+size-1)/size)
	for start := 0; start < len(leads); start += size {
		end := start + size
		if end > len(leads) {
			end = len(leads)
		}
		groups = append(groups, leads[start:end])
	}
	return groups
}
