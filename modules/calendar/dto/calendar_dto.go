package dto

// Provider constants
const (
	ProviderGoogle = "google"
)

// ========== Calendar Connection DTOs ==========

// CalendarConnectionResponse represents a calendar connection
type CalendarConnectionResponse struct {
	ID           string  `json:"id"`
	MemberID     string  `json:"member_id"`
	CalendarID   string  `json:"calendar_id"`
	Provider     string  `json:"provider"`
	SyncEnabled  bool    `json:"sync_enabled"`
	LastSyncedAt *string `json:"last_synced_at,omitempty"`
	LastError    *string `json:"last_error,omitempty"`
	ConnectedAt  string  `json:"connected_at"`
}

// CalendarConnectionListResponse represents list of connections
type CalendarConnectionListResponse struct {
	Connections []CalendarConnectionResponse `json:"connections"`
}

// ========== Team Event DTOs ==========

// TeamEvent is the merged, member-tagged view of one provider event.
// It is derived per request and never persisted.
type TeamEvent struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"member_id"`
	MemberName  string          `json:"member_name"`
	MemberColor string          `json:"member_color"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time,omitempty"`
	AllDay      bool            `json:"all_day"`
	Attendees   []EventAttendee `json:"attendees,omitempty"`
	MeetingLink string          `json:"meeting_link,omitempty"`
}

type EventAttendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// TeamEventListResponse is the events-listing payload
type TeamEventListResponse struct {
	Events []TeamEvent `json:"events"`
}
