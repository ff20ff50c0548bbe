package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/models"
)

// SQLiteStore provides a SQLite-backed implementation of Store with WAL mode.
// It is thread-safe and supports concurrent access.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore creates a new SQLite store with WAL mode enabled.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.NewLogger(),
	}, nil
}

// runMigrations runs database migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "create migrations table", Err: err}
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "get current migration version", Err: err}
	}

	migrations := []struct {
		version int
		up      string
	}{
		{
			version: 1,
			up: `
				CREATE TABLE IF NOT EXISTS users (
					facebook_id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					short_lived_token TEXT NOT NULL DEFAULT '',
					long_lived_token TEXT NOT NULL DEFAULT '',
					token_expires_at DATETIME,
					last_login DATETIME
				);

				CREATE TABLE IF NOT EXISTS ad_accounts (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					account_id TEXT NOT NULL DEFAULT '',
					status INTEGER NOT NULL DEFAULT 0,
					currency TEXT NOT NULL DEFAULT '',
					updated_at DATETIME,
					PRIMARY KEY (user_id, id)
				);

				CREATE TABLE IF NOT EXISTS leads (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					created_time TEXT NOT NULL DEFAULT '',
					name TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL DEFAULT '',
					phone TEXT NOT NULL DEFAULT '',
					form_id TEXT NOT NULL DEFAULT '',
					imported_at DATETIME,
					custom_fields TEXT NOT NULL DEFAULT '{}',
					PRIMARY KEY (user_id, id)
				);
				CREATE INDEX IF NOT EXISTS idx_leads_created_time ON leads(user_id, created_time DESC);

				CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					created_at DATETIME,
					expires_at DATETIME
				);
			`,
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
		}
		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
		}
	}

	return nil
}

// SaveUser merge-writes a user credential record.
func (s *SQLiteStore) SaveUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	existing, err := s.GetUser(ctx, user.FacebookID)
	if err != nil {
		return err
	}

	merged := *user
	if existing != nil {
		merged = existing.Merge(*user)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (facebook_id, name, email, short_lived_token, long_lived_token, token_expires_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(facebook_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			short_lived_token = excluded.short_lived_token,
			long_lived_token = excluded.long_lived_token,
			token_expires_at = excluded.token_expires_at,
			last_login = excluded.last_login
	`, merged.FacebookID, merged.Name, merged.Email, merged.ShortLivedToken, merged.LongLivedToken,
		nullableTime(merged.TokenExpiresAt), nullableTime(merged.LastLogin))
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save user", Err: err}
	}
	return nil
}

// GetUser returns the user record, or nil when none exists.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var (
		user      models.User
		expiresAt sql.NullTime
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT facebook_id, name, email, short_lived_token, long_lived_token, token_expires_at, last_login
		FROM users WHERE facebook_id = ?
	`, userID).Scan(&user.FacebookID, &user.Name, &user.Email, &user.ShortLivedToken,
		&user.LongLivedToken, &expiresAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get user", Err: err}
	}

	if expiresAt.Valid {
		user.TokenExpiresAt = expiresAt.Time
	}
	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	}
	return &user, nil
}

// GetUserToken returns the stored long-lived token, empty when absent.
func (s *SQLiteStore) GetUserToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		"SELECT long_lived_token FROM users WHERE facebook_id = ?", userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", &errors.ErrDatabaseQuery{Operation: "get user token", Err: err}
	}
	return token, nil
}

// SaveAdAccounts replaces the snapshot for each account in one transaction.
func (s *SQLiteStore) SaveAdAccounts(ctx context.Context, userID string, accounts []models.AdAccount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save ad accounts", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, acc := range accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ad_accounts (user_id, id, name, account_id, status, currency, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, id) DO UPDATE SET
				name = excluded.name,
				account_id = excluded.account_id,
				status = excluded.status,
				currency = excluded.currency,
				updated_at = excluded.updated_at
		`, userID, acc.ID, acc.Name, acc.AccountID, acc.Status, acc.Currency, now)
		if err != nil {
			return &errors.ErrDatabaseQuery{Operation: "save ad accounts", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save ad accounts", Err: err}
	}

	s.logger.InfoWithContext(ctx, "saved ad accounts", "user_id", userID, "count", len(accounts))
	return nil
}

// GetAdAccounts returns all ad-account snapshots for a user.
func (s *SQLiteStore) GetAdAccounts(ctx context.Context, userID string) ([]models.AdAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, account_id, status, currency, updated_at
		FROM ad_accounts WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get ad accounts", Err: err}
	}
	defer rows.Close()

	var accounts []models.AdAccount
	for rows.Next() {
		var (
			acc       models.AdAccount
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.AccountID, &acc.Status, &acc.Currency, &updatedAt); err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "get ad accounts", Err: err}
		}
		if updatedAt.Valid {
			acc.UpdatedAt = updatedAt.Time
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get ad accounts", Err: err}
	}
	return accounts, nil
}

// SaveLeads merge-writes leads keyed by lead id. Writes are flushed in
// transactions of at most 450 operations; the final partial group is
// committed as well. Groups committed before a failure stay committed.
func (s *SQLiteStore) SaveLeads(ctx context.Context, userID, formID string, leads []models.Lead) error {
	if len(leads) == 0 {
		s.logger.InfoWithContext(ctx, "no leads to save", "user_id", userID, "form_id", formID)
		return nil
	}

	now := time.Now().UTC()
	for _, group := range chunkLeads(leads, maxWriteGroupSize) {
		if err := s.saveLeadGroup(ctx, userID, formID, group, now); err != nil {
			return err
		}
	}

	s.logger.InfoWithContext(ctx, "saved leads", "user_id", userID, "form_id", formID, "count", len(leads))
	return nil
}

func (s *SQLiteStore) saveLeadGroup(ctx context.Context, userID, formID string, group []models.Lead, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save leads", Err: err}
	}
	defer tx.Rollback()

	for _, lead := range group {
		lead.FormID = formID
		lead.ImportedAt = now

		var (
			existing    models.Lead
			fieldsJSON  string
			createdTime string
		)
		err := tx.QueryRowContext(ctx,
			"SELECT created_time, custom_fields FROM leads WHERE user_id = ? AND id = ?",
			userID, lead.ID).Scan(&createdTime, &fieldsJSON)
		switch err {
		case nil:
			existing.ID = lead.ID
			existing.CreatedTime = createdTime
			if err := json.Unmarshal([]byte(fieldsJSON), &existing.CustomFields); err != nil {
				return &errors.ErrDatabaseQuery{Operation: "decode custom fields", Err: err}
			}
			lead = existing.Merge(lead)
		case sql.ErrNoRows:
			// first import of this lead
		default:
			return &errors.ErrDatabaseQuery{Operation: "save leads", Err: err}
		}

		encoded, err := json.Marshal(lead.CustomFields)
		if err != nil {
			return &errors.ErrDatabaseQuery{Operation: "encode custom fields", Err: err}
		}
		if lead.CustomFields == nil {
			encoded = []byte("{}")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO leads (user_id, id, created_time, name, email, phone, form_id, imported_at, custom_fields)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, id) DO UPDATE SET
				created_time = excluded.created_time,
				name = excluded.name,
				email = excluded.email,
				phone = excluded.phone,
				form_id = excluded.form_id,
				imported_at = excluded.imported_at,
				custom_fields = excluded.custom_fields
		`, userID, lead.ID, lead.CreatedTime, lead.Name, lead.Email, lead.Phone,
			lead.FormID, lead.ImportedAt, string(encoded))
		if err != nil {
			return &errors.ErrDatabaseQuery{Operation: "save leads", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save leads", Err: err}
	}
	return nil
}

// GetLeads returns leads ordered by creation time descending. Missing
// import timestamps are backfilled with the current time at read time.
func (s *SQLiteStore) GetLeads(ctx context.Context, userID string) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_time, name, email, phone, form_id, imported_at, custom_fields
		FROM leads WHERE user_id = ? ORDER BY created_time DESC, id DESC
	`, userID)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get leads", Err: err}
	}
	defer rows.Close()

	now := time.Now().UTC()
	var leads []models.Lead
	for rows.Next() {
		var (
			lead       models.Lead
			importedAt sql.NullTime
			fieldsJSON string
		)
		if err := rows.Scan(&lead.ID, &lead.CreatedTime, &lead.Name, &lead.Email, &lead.Phone,
			&lead.FormID, &importedAt, &fieldsJSON); err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "get leads", Err: err}
		}
		if importedAt.Valid {
			lead.ImportedAt = importedAt.Time
		} else {
			lead.ImportedAt = now
		}
		if fieldsJSON != "" && fieldsJSON != "{}" {
			if err := json.Unmarshal([]byte(fieldsJSON), &lead.CustomFields); err != nil {
				return nil, &errors.ErrDatabaseQuery{Operation: "decode custom fields", Err: err}
			}
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get leads", Err: err}
	}
	return leads, nil
}

// CountLeads returns the number of leads stored for a user.
func (s *SQLiteStore) CountLeads(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "count leads", Err: err}
	}
	return count, nil
}

// DeleteAllLeads removes the user's entire lead collection in one transaction.
func (s *SQLiteStore) DeleteAllLeads(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM leads WHERE user_id = ?", userID)
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "delete leads", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "delete leads", Err: err}
	}

	s.logger.InfoWithContext(ctx, "deleted leads", "user_id", userID, "count", deleted)
	return int(deleted), nil
}

// SaveSession stores a session.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save session", Err: err}
	}
	return nil
}

// GetSession returns a session by id, or nil when none exists.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?",
		sessionID).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get session", Err: err}
	}
	return &session, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "delete session", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
