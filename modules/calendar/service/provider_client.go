package service

import (
	"context"
	"time"

	"crm-calendar-api/modules/calendar/provider"
)

// ProviderClient is the slice of the calendar provider the services use.
// Satisfied by provider.GoogleClient; faked in tests.
type ProviderClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*provider.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*provider.Token, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*provider.UserInfo, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]provider.Event, error)
}
