package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"crm-calendar-api/core/database"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/calendar/entity"
)

// CalendarRepository is the Connection Store: one row per
// (member, calendar) OAuth grant.
type CalendarRepository interface {
	UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetConnection(ctx context.Context, id uuid.UUID) (*entity.CalendarConnection, error)
	GetConnectionsByMemberID(ctx context.Context, memberID uuid.UUID) ([]entity.CalendarConnection, error)
	ListConnections(ctx context.Context) ([]entity.CalendarConnection, error)
	ListEnabledConnections(ctx context.Context, memberIDs []uuid.UUID) ([]entity.CalendarConnection, error)
	ListConnectionsExpiringBefore(ctx context.Context, deadline time.Time) ([]entity.CalendarConnection, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiresAt time.Time) error
	RecordSyncError(ctx context.Context, id uuid.UUID, message string) error
	RecordSyncSuccess(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
	DisableConnection(ctx context.Context, id uuid.UUID, memberID uuid.UUID) error
}

type calendarRepository struct {
	db database.IDatabase
}

func NewCalendarRepository(db database.IDatabase) CalendarRepository {
	return &calendarRepository{db: db}
}

// UpsertConnection inserts a connection or, when the (member, calendar)
// pair already exists, replaces its tokens. Re-authorizing never
// duplicates rows.
func (r *calendarRepository) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (
			id, member_id, calendar_id, provider, access_token, refresh_token,
			token_expires_at, sync_enabled, last_error, created_at, updated_at
		)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, NULL, NOW(), NOW())
		ON CONFLICT (member_id, calendar_id)
		DO UPDATE SET
			provider = EXCLUDED.provider,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			sync_enabled = EXCLUDED.sync_enabled,
			last_error = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		conn.MemberID, conn.CalendarID, conn.Provider, conn.AccessToken,
		conn.RefreshToken, conn.TokenExpiresAt, conn.SyncEnabled,
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		logger.Error("CalendarRepository:UpsertConnection:Error", "error", err, "member_id", conn.MemberID)
		return nil, err
	}
	return conn, nil
}

func (r *calendarRepository) GetConnection(ctx context.Context, id uuid.UUID) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `SELECT * FROM calendar_connections WHERE id = $1`
	err := r.db.GetContext(ctx, &conn, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnection:Error", "error", err, "id", id)
		return nil, err
	}
	return &conn, nil
}

func (r *calendarRepository) GetConnectionsByMemberID(ctx context.Context, memberID uuid.UUID) ([]entity.CalendarConnection, error) {
	var connections []entity.CalendarConnection
	query := `
		SELECT * FROM calendar_connections
		WHERE member_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &connections, query, memberID); err != nil {
		logger.Error("CalendarRepository:GetConnectionsByMemberID:Error", "error", err, "member_id", memberID)
		return nil, err
	}
	return connections, nil
}

// ListConnections returns every connection row, enabled or not. Feeds the
// team-wide sync-status view.
func (r *calendarRepository) ListConnections(ctx context.Context) ([]entity.CalendarConnection, error) {
	var connections []entity.CalendarConnection
	query := `SELECT * FROM calendar_connections ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &connections, query); err != nil {
		logger.Error("CalendarRepository:ListConnections:Error", "error", err)
		return nil, err
	}
	return connections, nil
}

// ListEnabledConnections returns all sync-enabled connections, optionally
// restricted to the given member ids.
func (r *calendarRepository) ListEnabledConnections(ctx context.Context, memberIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	var connections []entity.CalendarConnection

	if len(memberIDs) == 0 {
		query := `SELECT * FROM calendar_connections WHERE sync_enabled = true ORDER BY created_at`
		if err := r.db.SelectContext(ctx, &connections, query); err != nil {
			logger.Error("CalendarRepository:ListEnabledConnections:Error", "error", err)
			return nil, err
		}
		return connections, nil
	}

	ids := make([]string, len(memberIDs))
	for i, id := range memberIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT * FROM calendar_connections
		WHERE sync_enabled = true AND member_id = ANY($1::uuid[])
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &connections, query, "{"+joinStrings(ids, ",")+"}"); err != nil {
		logger.Error("CalendarRepository:ListEnabledConnections:Error", "error", err)
		return nil, err
	}
	return connections, nil
}

// ListConnectionsExpiringBefore returns sync-enabled connections whose
// access token expires before the deadline and that hold a refresh token.
// Used by the background refresh job.
func (r *calendarRepository) ListConnectionsExpiringBefore(ctx context.Context, deadline time.Time) ([]entity.CalendarConnection, error) {
	var connections []entity.CalendarConnection
	query := `
		SELECT * FROM calendar_connections
		WHERE sync_enabled = true
		AND refresh_token IS NOT NULL
		AND token_expires_at IS NOT NULL
		AND token_expires_at < $1
	`
	if err := r.db.SelectContext(ctx, &connections, query, deadline); err != nil {
		logger.Error("CalendarRepository:ListConnectionsExpiringBefore:Error", "error", err)
		return nil, err
	}
	return connections, nil
}

// UpdateTokens replaces the access-token-plus-expiry pair as a single
// atomic write. The refresh token is only touched when the provider
// returned a new one. Last-write-wins under concurrent refreshes: the
// provider-issued token value is always self-consistent.
func (r *calendarRepository) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiresAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $1,
		    refresh_token = COALESCE($2, refresh_token),
		    token_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $4
	`
	if err := r.db.ExecContext(ctx, query, accessToken, refreshToken, expiresAt, id); err != nil {
		logger.Error("CalendarRepository:UpdateTokens:Error", "error", err, "id", id)
		return err
	}
	return nil
}

func (r *calendarRepository) RecordSyncError(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE calendar_connections
		SET last_error = $1, updated_at = NOW()
		WHERE id = $2
	`
	if err := r.db.ExecContext(ctx, query, message, id); err != nil {
		logger.Error("CalendarRepository:RecordSyncError:Error", "error", err, "id", id)
		return err
	}
	return nil
}

func (r *calendarRepository) RecordSyncSuccess(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET last_synced_at = $1, last_error = NULL, updated_at = NOW()
		WHERE id = $2
	`
	if err := r.db.ExecContext(ctx, query, syncedAt, id); err != nil {
		logger.Error("CalendarRepository:RecordSyncSuccess:Error", "error", err, "id", id)
		return err
	}
	return nil
}

// DisableConnection flips sync off. Connections are never hard-deleted.
func (r *calendarRepository) DisableConnection(ctx context.Context, id uuid.UUID, memberID uuid.UUID) error {
	query := `
		UPDATE calendar_connections
		SET sync_enabled = false, updated_at = NOW()
		WHERE id = $1 AND member_id = $2
	`
	if err := r.db.ExecContext(ctx, query, id, memberID); err != nil {
		logger.Error("CalendarRepository:DisableConnection:Error", "error", err, "id", id)
		return err
	}
	return nil
}

func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for i := 1; i < len(strs); i++ {
		result += sep + strs[i]
	}
	return result
}
