package sync

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
	"github.com/leadsync/leadsync/internal/store"
)

type fakeSource struct {
	accounts []models.AdAccount
	forms    map[string][]models.LeadForm
	leads    map[string][]models.Lead

	accountsErr error
	formsErr    map[string]error
	leadsErr    map[string]error
}

func (f *fakeSource) AdAccounts(ctx context.Context, token string) ([]models.AdAccount, error) {
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return f.accounts, nil
}

func (f *fakeSource) LeadForms(ctx context.Context, token, accountID string) ([]models.LeadForm, error) {
	if err := f.formsErr[accountID]; err != nil {
		return nil, err
	}
	return f.forms[accountID], nil
}

func (f *fakeSource) Leads(ctx context.Context, token, formID string) ([]models.Lead, error) {
	if err := f.leadsErr[formID]; err != nil {
		return nil, err
	}
	return f.leads[formID], nil
}

func newTestService(source Source) (*Service, store.Store) {
	s := store.NewMemoryStore()
	logger := logging.NewLogger(logging.WithOutput(io.Discard))
	return NewService(source, s, logger), s
}

func TestRun_WalksAccountsFormsLeads(t *testing.T) {
	source := &fakeSource{
		accounts: []models.AdAccount{
			{ID: "act_1", Name: "Main", AccountID: "1", Status: 1, Currency: "EUR"},
			{ID: "act_2", Name: "Side", AccountID: "2", Status: 1, Currency: "USD"},
		},
		forms: map[string][]models.LeadForm{
			"act_1": {{ID: "form_a", Name: "Spring"}, {ID: "form_b", Name: "Summer"}},
			"act_2": {{ID: "form_c", Name: "Autumn"}},
		},
		leads: map[string][]models.Lead{
			"form_a": {{ID: "l1", CreatedTime: "2026-01-01T00:00:00+0000", Name: "Ada"}},
			"form_b": {{ID: "l2", CreatedTime: "2026-01-02T00:00:00+0000", Name: "Ben"}, {ID: "l3", CreatedTime: "2026-01-03T00:00:00+0000", Name: "Cleo"}},
			"form_c": {},
		},
	}

	service, s := newTestService(source)
	result, err := service.Run(context.Background(), "user-1", "token")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accounts)
	assert.Equal(t, 3, result.Forms)
	assert.Equal(t, 3, result.TotalLeads)

	accounts, err := s.GetAdAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	leads, err := s.GetLeads(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, leads, 3)
	for _, lead := range leads {
		assert.NotEmpty(t, lead.FormID)
		assert.False(t, lead.ImportedAt.IsZero())
	}
}

func TestRun_SingleLeadScenario(t *testing.T) {
	// One account, one form, one lead carrying only an email field.
	source := &fakeSource{
		accounts: []models.AdAccount{{ID: "act_1", Name: "Main", AccountID: "1"}},
		forms:    map[string][]models.LeadForm{"act_1": {{ID: "form_a", Name: "Contact"}}},
		leads: map[string][]models.Lead{
			"form_a": {{
				ID:          "lead-1",
				CreatedTime: "2026-02-01T10:00:00+0000",
				Name:        "N/A",
				Email:       "x@y.com",
				Phone:       "N/A",
			}},
		},
	}

	service, s := newTestService(source)
	result, err := service.Run(context.Background(), "user-1", "token")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalLeads)

	leads, err := s.GetLeads(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "x@y.com", leads[0].Email)
	assert.Equal(t, "N/A", leads[0].Name)
	assert.Equal(t, "N/A", leads[0].Phone)
}

func TestRun_Idempotent(t *testing.T) {
	source := &fakeSource{
		accounts: []models.AdAccount{{ID: "act_1", Name: "Main", AccountID: "1"}},
		forms:    map[string][]models.LeadForm{"act_1": {{ID: "form_a"}}},
		leads: map[string][]models.Lead{
			"form_a": {{ID: "l1", CreatedTime: "2026-01-01T00:00:00+0000", Name: "Ada", Email: "ada@example.com"}},
		},
	}

	service, s := newTestService(source)
	ctx := context.Background()

	_, err := service.Run(ctx, "user-1", "token")
	require.NoError(t, err)
	_, err = service.Run(ctx, "user-1", "token")
	require.NoError(t, err)

	count, err := s.CountLeads(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_AccountsErrorAborts(t *testing.T) {
	source := &fakeSource{
		accountsErr: &errors.ErrUpstreamStatus{Endpoint: "me/adaccounts", StatusCode: 401, Message: "Invalid OAuth access token."},
	}

	service, s := newTestService(source)
	_, err := service.Run(context.Background(), "user-1", "token")

	var upstream *errors.ErrUpstreamStatus
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 401, upstream.StatusCode)

	count, err := s.CountLeads(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRun_MidwayErrorKeepsCommittedLeads(t *testing.T) {
	// Two forms; the second fails. Leads from the first stay persisted.
	source := &fakeSource{
		accounts: []models.AdAccount{{ID: "act_1", Name: "Main", AccountID: "1"}},
		forms: map[string][]models.LeadForm{
			"act_1": {{ID: "form_a"}, {ID: "form_b"}},
		},
		leads: map[string][]models.Lead{
			"form_a": {{ID: "l1", CreatedTime: "2026-01-01T00:00:00+0000", Name: "Ada"}},
		},
		leadsErr: map[string]error{
			"form_b": &errors.ErrUpstreamStatus{Endpoint: "form_b/leads", StatusCode: 500, Message: "temporarily unavailable"},
		},
	}

	service, s := newTestService(source)
	_, err := service.Run(context.Background(), "user-1", "token")
	require.Error(t, err)

	count, err := s.CountLeads(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
