package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
)

// MemoryStore provides an in-memory implementation of Store.
// It is thread-safe and intended for tests and zero-config runs.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	accounts map[string]map[string]models.AdAccount // userID -> accountID -> snapshot
	leads    map[string]map[string]models.Lead      // userID -> leadID -> lead
	sessions map[string]*models.Session
	logger   *logging.Logger
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		accounts: make(map[string]map[string]models.AdAccount),
		leads:    make(map[string]map[string]models.Lead),
		sessions: make(map[string]*models.Session),
		logger:   logging.NewLogger(),
	}
}

// SaveUser merge-writes a user credential record.
func (s *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := *user
	if existing, ok := s.users[user.FacebookID]; ok {
		merged = existing.Merge(*user)
	}
	s.users[user.FacebookID] = &merged
	return nil
}

// GetUser returns the user record, or nil when none exists.
func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// GetUserToken returns the stored long-lived token, empty when absent.
func (s *MemoryStore) GetUserToken(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return "", nil
	}
	return user.LongLivedToken, nil
}

// SaveAdAccounts replaces the snapshot for each account in one write group.
func (s *MemoryStore) SaveAdAccounts(ctx context.Context, userID string, accounts []models.AdAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.accounts[userID]
	if !ok {
		byID = make(map[string]models.AdAccount, len(accounts))
		s.accounts[userID] = byID
	}

	now := time.Now().UTC()
	for _, acc := range accounts {
		acc.UpdatedAt = now
		byID[acc.ID] = acc
	}
	return nil
}

// GetAdAccounts returns all ad-account snapshots for a user.
func (s *MemoryStore) GetAdAccounts(ctx context.Context, userID string) ([]models.AdAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.accounts[userID]
	accounts := make([]models.AdAccount, 0, len(byID))
	for _, acc := range byID {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// SaveLeads merge-writes leads keyed by lead id in groups of at most 450.
func (s *MemoryStore) SaveLeads(ctx context.Context, userID, formID string, leads []models.Lead) error {
	if len(leads) == 0 {
		s.logger.InfoWithContext(ctx, "no leads to save", "user_id", userID, "form_id", formID)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.leads[userID]
	if !ok {
		byID = make(map[string]models.Lead, len(leads))
		s.leads[userID] = byID
	}

	now := time.Now().UTC()
	for _, group := range chunkLeads(leads, maxWriteGroupSize) {
		for _, lead := range group {
			lead.FormID = formID
			lead.ImportedAt = now
			if existing, ok := byID[lead.ID]; ok {
				lead = existing.Merge(lead)
			}
			byID[lead.ID] = lead
		}
	}

	s.logger.InfoWithContext(ctx, "saved leads", "user_id", userID, "form_id", formID, "count", len(leads))
	return nil
}

// GetLeads returns leads ordered by creation time descending.
func (s *MemoryStore) GetLeads(ctx context.Context, userID string) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	byID := s.leads[userID]
	leads := make([]models.Lead, 0, len(byID))
	for _, lead := range byID {
		if lead.ImportedAt.IsZero() {
			lead.ImportedAt = now
		}
		leads = append(leads, lead)
	}

	sort.Slice(leads, func(i, j int) bool {
		if leads[i].CreatedTime != leads[j].CreatedTime {
			return leads[i].CreatedTime > leads[j].CreatedTime
		}
		return leads[i].ID > leads[j].ID
	})
	return leads, nil
}

// CountLeads returns the number of leads stored for a user.
func (s *MemoryStore) CountLeads(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads[userID]), nil
}

// DeleteAllLeads removes the user's entire lead collection.
func (s *MemoryStore) DeleteAllLeads(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.leads[userID])
	delete(s.leads, userID)
	return count, nil
}

// SaveSession stores a session.
func (s *MemoryStore) SaveSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// GetSession returns a session by id, or nil when none exists.
func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// DeleteSession removes a session.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
