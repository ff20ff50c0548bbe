package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadsync/leadsync/internal/auth"
	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/export"
)

// userToken loads the stored long-lived token for the session user.
// A missing token aborts the request with 401.
func (s *Server) userToken(c *gin.Context) (userID, token string, ok bool) {
	userID = auth.UserID(c)
	token, err := s.store.GetUserToken(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return "", "", false
	}
	if token == "" {
		s.respondError(c, &errors.ErrTokenNotFound{UserID: userID})
		return "", "", false
	}
	return userID, token, true
}

// respondError maps the error taxonomy to HTTP responses.
func (s *Server) respondError(c *gin.Context, err error) {
	endpoint := c.FullPath()
	method := c.Request.Method

	var tokenErr *errors.ErrTokenNotFound
	if stderrors.As(err, &tokenErr) {
		s.metrics.RecordError("token_not_found", endpoint, method)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token not found"})
		return
	}

	var noLeads *errors.ErrNoLeads
	if stderrors.As(err, &noLeads) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No leads found",
			"message": "Please sync leads first",
		})
		return
	}

	// Upstream failures always surface as 500 with the Graph API
	// message passed through, whatever status the Graph API returned.
	var upstream *errors.ErrUpstreamStatus
	if stderrors.As(err, &upstream) {
		s.metrics.RecordError("upstream", endpoint, method)
		c.JSON(http.StatusInternalServerError, gin.H{"error": upstream.Message})
		return
	}

	s.metrics.RecordError("internal", endpoint, method)
	s.logger.ErrorWithContext(c.Request.Context(), "request failed",
		"endpoint", endpoint,
		"error", err.Error(),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// handleAdAccounts lists the user's ad accounts and persists a snapshot.
func (s *Server) handleAdAccounts(c *gin.Context) {
	userID, token, ok := s.userToken(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	accounts, err := s.fb.AdAccounts(ctx, token)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.SaveAdAccounts(ctx, userID, accounts); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "accounts": accounts})
}

// handleLeadForms lists the lead forms of one ad account.
func (s *Server) handleLeadForms(c *gin.Context) {
	_, token, ok := s.userToken(c)
	if !ok {
		return
	}

	forms, err := s.fb.LeadForms(c.Request.Context(), token, c.Param("accountId"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "forms": forms})
}

// handleFormLeads pulls the leads of one form from the Graph API and
// persists them before responding.
func (s *Server) handleFormLeads(c *gin.Context) {
	userID, token, ok := s.userToken(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	formID := c.Param("formId")

	leads, err := s.fb.Leads(ctx, token, formID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.SaveLeads(ctx, userID, formID, leads); err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.RecordLeadsPersisted(len(leads))

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(leads), "leads": leads})
}

// handleStoredLeads returns all stored leads, newest first.
func (s *Server) handleStoredLeads(c *gin.Context) {
	userID := auth.UserID(c)

	leads, err := s.store.GetLeads(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(leads), "leads": leads})
}

// handleDeleteLeads removes every stored lead of the session user.
func (s *Server) handleDeleteLeads(c *gin.Context) {
	userID := auth.UserID(c)

	deleted, err := s.store.DeleteAllLeads(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.InfoWithContext(c.Request.Context(), "leads deleted", "user_id", userID, "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

// handleSyncLeads runs the full account->form->lead sync walk.
func (s *Server) handleSyncLeads(c *gin.Context) {
	userID, token, ok := s.userToken(c)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.syncSvc.Run(c.Request.Context(), userID, token)
	if err != nil {
		s.metrics.RecordSyncRun("error", time.Since(start).Seconds())
		s.respondError(c, err)
		return
	}
	s.metrics.RecordSyncRun("success", time.Since(start).Seconds())
	s.metrics.RecordLeadsPersisted(result.TotalLeads)

	if s.notifier != nil {
		s.notifier.SyncCompleted(userID, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Synced %d leads from %d accounts", result.TotalLeads, result.Accounts),
		"totalLeads": result.TotalLeads,
		"accounts":   result.Accounts,
		"forms":      result.Forms,
	})
}

// handleCampaigns lists the campaigns of one ad account.
func (s *Server) handleCampaigns(c *gin.Context) {
	_, token, ok := s.userToken(c)
	if !ok {
		return
	}

	campaigns, err := s.fb.Campaigns(c.Request.Context(), token, c.Param("accountId"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "campaigns": campaigns})
}

// handleExportCSV streams the stored leads as a CSV download.
func (s *Server) handleExportCSV(c *gin.Context) {
	userID := auth.UserID(c)
	ctx := c.Request.Context()

	leads, err := s.store.GetLeads(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(leads) == 0 {
		s.respondError(c, &errors.ErrNoLeads{UserID: userID})
		return
	}

	body, err := export.ToCSV(leads)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.RecordExport("csv")

	filename := export.Filename(time.Now(), "csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", body)
}

// handleExportJSON streams the stored leads as a JSON download.
func (s *Server) handleExportJSON(c *gin.Context) {
	userID := auth.UserID(c)
	ctx := c.Request.Context()

	leads, err := s.store.GetLeads(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(leads) == 0 {
		s.respondError(c, &errors.ErrNoLeads{UserID: userID})
		return
	}

	body, err := export.ToJSON(leads)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.RecordExport("json")

	filename := export.Filename(time.Now(), "json")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", body)
}
