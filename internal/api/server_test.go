package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadsync/leadsync/internal/auth"
	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/facebook"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
	"github.com/leadsync/leadsync/internal/store"
)

const testUserID = "fb-user-1"

// newGraphStub serves a minimal Graph API: one account, one form with
// two leads, and one campaign.
func newGraphStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v21.0/me/adaccounts", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"act_1","name":"Main","account_id":"1","account_status":1,"currency":"EUR"}]}`)
	})
	mux.HandleFunc("/v21.0/act_1/leadgen_forms", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"form_a","name":"Contact","status":"ACTIVE","leads_count":2}]}`)
	})
	mux.HandleFunc("/v21.0/form_a/leads", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[
			{"id":"l1","created_time":"2026-02-01T10:00:00+0000","field_data":[
				{"name":"full_name","values":["Ada Lovelace"]},
				{"name":"email","values":["ada@example.com"]},
				{"name":"company","values":["Analytical Engines"]}]},
			{"id":"l2","created_time":"2026-02-02T10:00:00+0000","field_data":[
				{"name":"email","values":["x@y.com"]}]}
		]}`)
	})
	mux.HandleFunc("/v21.0/act_1/campaigns", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"c1","name":"Spring push","status":"ACTIVE","objective":"LEAD_GENERATION"}]}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"message":"Unknown path: `+r.URL.Path+`"}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestServer builds a server against a memory store and the Graph
// stub, with one logged-in user. It returns the server and a session
// cookie for authenticated requests.
func newTestServer(t *testing.T, withToken bool) (*Server, store.Store, *http.Cookie) {
	t.Helper()

	graph := newGraphStub(t)
	logger := logging.NewLogger(logging.WithOutput(io.Discard))
	s := store.NewMemoryStore()

	cfg := &config.Config{}
	cfg.Server.SessionTTL = time.Hour
	cfg.Facebook = config.FacebookConfig{AppID: "app", AppSecret: "secret", APIVersion: "v21.0"}

	fb := facebook.NewClient(cfg.Facebook, logger, facebook.WithBaseURL(graph.URL))
	server := NewServer(cfg, s, fb, logger, nil)

	ctx := context.Background()
	if withToken {
		require.NoError(t, s.SaveUser(ctx, &models.User{
			FacebookID:     testUserID,
			Name:           "Ada",
			Email:          "ada@example.com",
			LongLivedToken: "token-abc",
			TokenExpiresAt: time.Now().Add(24 * time.Hour),
		}))
	}

	session, err := server.sessions.Create(ctx, testUserID)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: auth.SessionCookieName, Value: session.ID}

	return server, s, cookie
}

func doRequest(server *Server, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	server.Router().ServeHTTP(w, req)
	return w
}

func TestAPIRequiresSession(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/ad-accounts"},
		{http.MethodGet, "/api/leads"},
		{http.MethodPost, "/api/sync-leads"},
		{http.MethodGet, "/export/leads"},
	}
	for _, p := range paths {
		w := doRequest(server, p.method, p.path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, p.path)
		assert.JSONEq(t, `{"error":"Not authenticated"}`, w.Body.String(), p.path)
	}
}

func TestAPIRequiresStoredToken(t *testing.T) {
	server, _, cookie := newTestServer(t, false)

	w := doRequest(server, http.MethodGet, "/api/ad-accounts", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Token not found"}`, w.Body.String())
}

func TestHandleAdAccounts(t *testing.T) {
	server, s, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/ad-accounts", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool               `json:"success"`
		Accounts []models.AdAccount `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "act_1", resp.Accounts[0].ID)

	// The fetch also persists a snapshot.
	saved, err := s.GetAdAccounts(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestHandleLeadForms(t *testing.T) {
	server, _, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/lead-forms/act_1", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"form_a"`)
}

func TestHandleFormLeads_FetchesAndPersists(t *testing.T) {
	server, s, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/leads/form_a", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Count   int           `json:"count"`
		Leads   []models.Lead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	count, err := s.CountLeads(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandleSyncLeads(t *testing.T) {
	server, s, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodPost, "/api/sync-leads", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		TotalLeads int    `json:"totalLeads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Synced 2 leads from 1 accounts", resp.Message)
	assert.Equal(t, 2, resp.TotalLeads)

	leads, err := s.GetLeads(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	// Newest first; the one carrying only an email normalizes the rest.
	assert.Equal(t, "l2", leads[0].ID)
	assert.Equal(t, "x@y.com", leads[0].Email)
	assert.Equal(t, "N/A", leads[0].Name)
	assert.Equal(t, "N/A", leads[0].Phone)
	assert.Equal(t, "Ada Lovelace", leads[1].Name)
	assert.Equal(t, "Analytical Engines", leads[1].CustomFields["company"])
}

func TestHandleStoredLeadsAndDelete(t *testing.T) {
	server, _, cookie := newTestServer(t, true)

	// Empty store reads back as an empty list, not an error.
	w := doRequest(server, http.MethodGet, "/api/leads", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	doRequest(server, http.MethodPost, "/api/sync-leads", cookie)

	w = doRequest(server, http.MethodGet, "/api/leads", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = doRequest(server, http.MethodDelete, "/api/leads", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"deleted":2}`, w.Body.String())

	w = doRequest(server, http.MethodGet, "/api/leads", cookie)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestHandleCampaigns(t *testing.T) {
	server, _, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/api/campaigns/act_1", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Spring push"`)
}

func TestExportCSV_EmptyStore(t *testing.T) {
	server, _, cookie := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/export/leads", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No leads found","message":"Please sync leads first"}`, w.Body.String())
}

func TestExportCSV(t *testing.T) {
	server, _, cookie := newTestServer(t, true)
	doRequest(server, http.MethodPost, "/api/sync-leads", cookie)

	w := doRequest(server, http.MethodGet, "/export/leads", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment; filename=facebook-leads-"), disposition)
	assert.True(t, strings.HasSuffix(disposition, ".csv"), disposition)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Lead ID,Name,Email,Phone,Created Time,Form ID,Imported At"))
}

func TestExportJSON(t *testing.T) {
	server, _, cookie := newTestServer(t, true)
	doRequest(server, http.MethodPost, "/api/sync-leads", cookie)

	w := doRequest(server, http.MethodGet, "/export/leads/json", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".json")

	var leads []models.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leads))
	assert.Len(t, leads, 2)
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	w := doRequest(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	doRequest(server, http.MethodGet, "/health", nil)
	w := doRequest(server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leadsync_http_requests_total")
}

func TestUpstreamErrorsSurfaceAs500(t *testing.T) {
	// Every upstream non-success maps to 500 with the Graph API
	// message passed through, regardless of the upstream status.
	cases := []struct {
		name           string
		upstreamStatus int
		upstreamBody   string
		wantMessage    string
	}{
		{
			name:           "rejected token",
			upstreamStatus: http.StatusUnauthorized,
			upstreamBody:   `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
			wantMessage:    "Invalid OAuth access token.",
		},
		{
			name:           "rate limited",
			upstreamStatus: http.StatusInternalServerError,
			upstreamBody:   `{"error":{"message":"(#17) User request limit reached","type":"OAuthException","code":17}}`,
			wantMessage:    "(#17) User request limit reached",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.upstreamStatus)
				io.WriteString(w, tc.upstreamBody)
			})
			graph := httptest.NewServer(mux)
			t.Cleanup(graph.Close)

			logger := logging.NewLogger(logging.WithOutput(io.Discard))
			s := store.NewMemoryStore()
			cfg := &config.Config{}
			cfg.Server.SessionTTL = time.Hour
			cfg.Facebook = config.FacebookConfig{AppID: "app", AppSecret: "secret", APIVersion: "v21.0"}
			fb := facebook.NewClient(cfg.Facebook, logger, facebook.WithBaseURL(graph.URL))
			server := NewServer(cfg, s, fb, logger, nil)

			ctx := context.Background()
			require.NoError(t, s.SaveUser(ctx, &models.User{
				FacebookID:     testUserID,
				LongLivedToken: "stored-token",
				TokenExpiresAt: time.Now().Add(time.Hour),
			}))
			session, err := server.sessions.Create(ctx, testUserID)
			require.NoError(t, err)
			cookie := &http.Cookie{Name: auth.SessionCookieName, Value: session.ID}

			w := doRequest(server, http.MethodGet, "/api/ad-accounts", cookie)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"`+tc.wantMessage+`"}`, w.Body.String())
		})
	}
}
