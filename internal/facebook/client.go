// Package facebook wraps the Graph/Marketing API endpoints used to pull
// lead-ad data: ad accounts, lead forms, leads and campaigns. The client
// is read-only against the source; the only non-GET flow is the token
// exchange used at login.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
)

const (
	defaultBaseURL = "https://graph.facebook.com"
	leadsPageLimit = 500
)

// Client talks to the Facebook Graph API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	appID      string
	appSecret  string
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Graph API client for the configured app.
func NewClient(cfg config.FacebookConfig, logger *logging.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    defaultBaseURL,
		version:    cfg.APIVersion,
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		logger:     logger,
	}
	if c.version == "" {
		c.version = "v21.0"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dataEnvelope is the standard Graph API list response.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// graphError is the standard Graph API error body.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// get performs a Graph API GET and decodes the enveloped data array into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.version, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &errors.ErrUpstreamRequest{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.ErrUpstreamRequest{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		c.logger.ErrorWithContext(ctx, "graph api error",
			"endpoint", endpoint, "status", resp.StatusCode, "message", ge.Error.Message)
		return &errors.ErrUpstreamStatus{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    ge.Error.Message,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errors.ErrUpstreamRequest{Endpoint: endpoint, Err: err}
	}
	return nil
}

// getList performs a Graph API GET and decodes the "data" array into out.
func (c *Client) getList(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var envelope dataEnvelope
	if err := c.get(ctx, endpoint, params, &envelope); err != nil {
		return err
	}
	if envelope.Data == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &errors.ErrUpstreamRequest{Endpoint: endpoint, Err: err}
	}
	return nil
}

type rawAdAccount struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
	Status    int    `json:"account_status"`
	Currency  string `json:"currency"`
}

// AdAccounts fetches the ad accounts the token can access.
func (c *Client) AdAccounts(ctx context.Context, token string) ([]models.AdAccount, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,name,account_id,account_status,currency")

	var raw []rawAdAccount
	if err := c.getList(ctx, "me/adaccounts", params, &raw); err != nil {
		return nil, err
	}

	accounts := make([]models.AdAccount, 0, len(raw))
	for _, r := range raw {
		accounts = append(accounts, models.AdAccount{
			ID:        r.ID,
			Name:      r.Name,
			AccountID: r.AccountID,
			Status:    r.Status,
			Currency:  r.Currency,
		})
	}

	c.logger.InfoWithContext(ctx, "fetched ad accounts", "count", len(accounts))
	return accounts, nil
}

type rawLeadForm struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	LeadsCount  int    `json:"leads_count"`
	CreatedTime string `json:"created_time"`
}

// LeadForms fetches the lead-generation forms of an ad account.
func (c *Client) LeadForms(ctx context.Context, token, accountID string) ([]models.LeadForm, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,name,status,leads_count,created_time")

	var raw []rawLeadForm
	if err := c.getList(ctx, accountID+"/leadgen_forms", params, &raw); err != nil {
		return nil, err
	}

	forms := make([]models.LeadForm, 0, len(raw))
	for _, r := range raw {
		forms = append(forms, models.LeadForm{
			ID:          r.ID,
			Name:        r.Name,
			Status:      r.Status,
			LeadsCount:  r.LeadsCount,
			CreatedTime: r.CreatedTime,
		})
	}

	c.logger.InfoWithContext(ctx, "fetched lead forms", "account_id", accountID, "count", len(forms))
	return forms, nil
}

// Leads fetches and normalizes the raw leads of a form.
func (c *Client) Leads(ctx context.Context, token, formID string) ([]models.Lead, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("limit", fmt.Sprintf("%d", leadsPageLimit))
	params.Set("fields", "id,created_time,field_data")

	var raw []RawLead
	if err := c.getList(ctx, formID+"/leads", params, &raw); err != nil {
		return nil, err
	}

	leads := make([]models.Lead, 0, len(raw))
	for _, r := range raw {
		leads = append(leads, Normalize(r))
	}

	c.logger.InfoWithContext(ctx, "fetched leads", "form_id", formID, "count", len(leads))
	return leads, nil
}

// Campaigns fetches the campaigns of an ad account.
func (c *Client) Campaigns(ctx context.Context, token, accountID string) ([]models.Campaign, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,name,status,objective,created_time")

	var raw []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Status      string `json:"status"`
		Objective   string `json:"objective"`
		CreatedTime string `json:"created_time"`
	}
	if err := c.getList(ctx, accountID+"/campaigns", params, &raw); err != nil {
		return nil, err
	}

	campaigns := make([]models.Campaign, 0, len(raw))
	for _, r := range raw {
		campaigns = append(campaigns, models.Campaign{
			ID:          r.ID,
			Name:        r.Name,
			Status:      r.Status,
			Objective:   r.Objective,
			CreatedTime: r.CreatedTime,
		})
	}
	return campaigns, nil
}

// ExchangeLongLivedToken exchanges a short-lived access token for a
// long-lived one using the fb_exchange_token grant.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, shortToken string) (string, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.appID)
	params.Set("client_secret", c.appSecret)
	params.Set("fb_exchange_token", shortToken)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, "oauth/access_token", params, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &errors.ErrUpstreamRequest{
			Endpoint: "oauth/access_token",
			Err:      fmt.Errorf("response missing access_token"),
		}
	}
	return resp.AccessToken, nil
}

// Profile fetches the basic profile of the token's user.
func (c *Client) Profile(ctx context.Context, token string) (id, name, email string, err error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,name,email")

	var resp struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.get(ctx, "me", params, &resp); err != nil {
		return "", "", "", err
	}
	if resp.ID == "" {
		return "", "", "", &errors.ErrUpstreamRequest{
			Endpoint: "me",
			Err:      fmt.Errorf("response missing profile id"),
		}
	}
	return resp.ID, resp.Name, resp.Email, nil
}
