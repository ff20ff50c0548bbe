// Package auth implements the Facebook OAuth login flow and the
// cookie-session layer that protects the API and export routes.
package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	oauthfb "golang.org/x/oauth2/facebook"

	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/facebook"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
	"github.com/leadsync/leadsync/internal/store"
)

const (
	// longLivedTokenTTL is how long Facebook long-lived tokens stay valid.
	longLivedTokenTTL = 60 * 24 * time.Hour
	// stateTTL bounds how long an issued OAuth state stays redeemable.
	stateTTL = 10 * time.Minute
)

// Handler implements the OAuth login, callback and logout routes.
type Handler struct {
	oauth    *oauth2.Config
	fb       *facebook.Client
	store    store.Store
	sessions *SessionManager
	logger   *logging.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewHandler creates an OAuth handler for the configured Facebook app.
func NewHandler(cfg config.FacebookConfig, fb *facebook.Client, s store.Store, sessions *SessionManager, logger *logging.Logger) *Handler {
	return &Handler{
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     oauthfb.Endpoint,
		},
		fb:       fb,
		store:    s,
		sessions: sessions,
		logger:   logger,
		states:   make(map[string]time.Time),
	}
}

// Login redirects the browser to the Facebook authorization dialog.
func (h *Handler) Login(c *gin.Context) {
	state := uuid.New().String()

	h.mu.Lock()
	h.states[state] = time.Now().Add(stateTTL)
	h.mu.Unlock()

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback handles the authorization-code redirect: it validates the
// state, exchanges the code, upgrades to a long-lived token, fetches the
// profile, merge-saves the credential record and issues a session.
func (h *Handler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.redeemState(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Authorization failed",
			"message": c.Query("error_description"),
		})
		return
	}

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.logger.ErrorWithContext(ctx, "oauth code exchange failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": (&errors.ErrOAuthExchange{Stage: "code", Err: err}).Error(),
		})
		return
	}

	longLived, err := h.fb.ExchangeLongLivedToken(ctx, token.AccessToken)
	if err != nil {
		h.logger.ErrorWithContext(ctx, "long-lived token exchange failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, name, email, err := h.fb.Profile(ctx, longLived)
	if err != nil {
		h.logger.ErrorWithContext(ctx, "profile fetch failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		FacebookID:      id,
		Name:            name,
		Email:           email,
		ShortLivedToken: token.AccessToken,
		LongLivedToken:  longLived,
		TokenExpiresAt:  now.Add(longLivedTokenTTL),
		LastLogin:       now,
	}
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.logger.ErrorWithContext(ctx, "failed to save user", "user_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessions.Create(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	http.SetCookie(c.Writer, h.sessions.Cookie(session, c.Request.TLS != nil))
	h.logger.InfoWithContext(ctx, "user authenticated", "user_id", id)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout destroys the session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if cookie, err := c.Request.Cookie(SessionCookieName); err == nil {
		_ = h.sessions.Destroy(c.Request.Context(), cookie.Value)
	}
	http.SetCookie(c.Writer, h.sessions.Cookie(nil, c.Request.TLS != nil))
	c.Redirect(http.StatusFound, "/")
}

// redeemState consumes a previously issued state token. Each state is
// valid once, inside its TTL.
func (h *Handler) redeemState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	expiry, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)

	// Drop other stale states while we hold the lock.
	now := time.Now()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}

	return now.Before(expiry)
}

// contextUserKey is the gin context key holding the authenticated user id.
const contextUserKey = "user_id"

// RequireSession resolves the session cookie to a user id or rejects the
// request with 401.
func RequireSession(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), cookie.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		c.Set(contextUserKey, session.UserID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireSession.
func UserID(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
