package provider

import "time"

// Event is the raw event payload returned by the provider's events endpoint.
type Event struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees"`
	HangoutLink string     `json:"hangoutLink"`
}

// EventTime is either {dateTime, timeZone} for timed events or {date} for
// all-day events.
type EventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// AllDay reports whether the provider expressed this time as a bare date
// with no time-of-day component.
func (t EventTime) AllDay() bool {
	return t.Date != "" && t.DateTime == ""
}

// Parse returns the instant this EventTime refers to. All-day dates parse
// at midnight UTC.
func (t EventTime) Parse() (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	return time.Parse("2006-01-02", t.Date)
}

// Token is the provider's token-endpoint response for both the
// authorization-code and refresh grants.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserInfo is the provider's identity-endpoint response.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
