package entity

import (
	"time"

	"github.com/google/uuid"

	"crm-calendar-api/core/entity"
)

// CalendarConnection stores one OAuth grant linking a team member to one
// external calendar. One member may hold several calendars; the
// (member_id, calendar_id) pair is the upsert key.
type CalendarConnection struct {
	entity.BaseEntity
	MemberID       uuid.UUID  `db:"member_id" json:"member_id"`
	CalendarID     string     `db:"calendar_id" json:"calendar_id"`
	Provider       string     `db:"provider" json:"provider"`
	AccessToken    string     `db:"access_token" json:"-"`
	RefreshToken   *string    `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at"`
	SyncEnabled    bool       `db:"sync_enabled" json:"sync_enabled"`
	LastSyncedAt   *time.Time `db:"last_synced_at" json:"last_synced_at"`
	LastError      *string    `db:"last_error" json:"last_error"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}

// TokenFresh reports whether the cached access token is still usable
// without a refresh. An absent expiry is treated as non-expiring; the
// stored expiry is authoritative, token-internal claims are ignored.
func (c *CalendarConnection) TokenFresh(now time.Time, safetyWindow time.Duration) bool {
	if c.TokenExpiresAt == nil {
		return true
	}
	return now.Add(safetyWindow).Before(*c.TokenExpiresAt)
}
