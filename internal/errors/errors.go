package errors

import "fmt"

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseMigration struct {
	Version int
	Err     error
}

func (e *ErrDatabaseMigration) Error() string {
	return fmt.Sprintf("database migration %d failed: %v", e.Version, e.Err)
}

func (e *ErrDatabaseMigration) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

type ErrDirectoryCreate struct {
	Path string
	Err  error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *ErrDirectoryCreate) Unwrap() error {
	return e.Err
}

// Auth errors

// ErrTokenNotFound indicates that no long-lived token is stored for a user.
// API handlers surface it as 401.
type ErrTokenNotFound struct {
	UserID string
}

func (e *ErrTokenNotFound) Error() string {
	return fmt.Sprintf("no stored token for user %s", e.UserID)
}

// ErrOAuthExchange indicates a failure during the OAuth code or token exchange.
type ErrOAuthExchange struct {
	Stage string
	Err   error
}

func (e *ErrOAuthExchange) Error() string {
	return fmt.Sprintf("oauth %s exchange failed: %v", e.Stage, e.Err)
}

func (e *ErrOAuthExchange) Unwrap() error {
	return e.Err
}

// Upstream errors

// ErrUpstreamStatus indicates a non-2xx response from the Graph API.
// The upstream error message is carried through to the caller verbatim.
type ErrUpstreamStatus struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ErrUpstreamStatus) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graph api %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("graph api %s returned %d", e.Endpoint, e.StatusCode)
}

// ErrUpstreamRequest indicates a transport-level failure reaching the Graph API.
type ErrUpstreamRequest struct {
	Endpoint string
	Err      error
}

func (e *ErrUpstreamRequest) Error() string {
	return fmt.Sprintf("graph api request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ErrUpstreamRequest) Unwrap() error {
	return e.Err
}

// Export errors

// ErrNoLeads indicates an empty lead collection where at least one lead
// was required, e.g. on export. Surfaced as 404.
type ErrNoLeads struct {
	UserID string
}

func (e *ErrNoLeads) Error() string {
	return "No leads found"
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}
