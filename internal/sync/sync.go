// Package sync pulls ad accounts, lead forms and leads from the Graph
// API and persists them through the store.
package sync

import (
	"context"

	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
	"github.com/leadsync/leadsync/internal/store"
)

// Source is the slice of the Graph API the sync walk needs.
type Source interface {
	AdAccounts(ctx context.Context, token string) ([]models.AdAccount, error)
	LeadForms(ctx context.Context, token, accountID string) ([]models.LeadForm, error)
	Leads(ctx context.Context, token, formID string) ([]models.Lead, error)
}

// Result summarizes a completed sync run.
type Result struct {
	Accounts   int `json:"accounts"`
	Forms      int `json:"forms"`
	TotalLeads int `json:"totalLeads"`
}

// Service runs the account -> form -> lead sync walk for a user.
type Service struct {
	source Source
	store  store.Store
	logger *logging.Logger
}

// NewService creates a sync service.
func NewService(source Source, s store.Store, logger *logging.Logger) *Service {
	return &Service{source: source, store: s, logger: logger}
}

// Run syncs every lead form of every ad account the token can see.
// Leads are persisted per form as each form completes, so an error
// partway through keeps everything already committed. The first error
// aborts the walk. Runs are not serialized per user; interleaved runs
// stay correct because lead writes are idempotent merges.
func (s *Service) Run(ctx context.Context, userID, token string) (*Result, error) {
	accounts, err := s.source.AdAccounts(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAdAccounts(ctx, userID, accounts); err != nil {
		return nil, err
	}

	result := &Result{Accounts: len(accounts)}
	for _, account := range accounts {
		forms, err := s.source.LeadForms(ctx, token, account.ID)
		if err != nil {
			return nil, err
		}
		result.Forms += len(forms)

		for _, form := range forms {
			leads, err := s.source.Leads(ctx, token, form.ID)
			if err != nil {
				return nil, err
			}
			if err := s.store.SaveLeads(ctx, userID, form.ID, leads); err != nil {
				return nil, err
			}
			result.TotalLeads += len(leads)

			s.logger.DebugWithContext(ctx, "form synced",
				"user_id", userID,
				"account_id", account.ID,
				"form_id", form.ID,
				"leads", len(leads),
			)
		}
	}

	s.logger.InfoWithContext(ctx, "sync completed",
		"user_id", userID,
		"accounts", result.Accounts,
		"forms", result.Forms,
		"total_leads", result.TotalLeads,
	)
	return result, nil
}
