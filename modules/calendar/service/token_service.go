package service

import (
	"context"
	"time"

	"crm-calendar-api/core/constants"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/calendar/entity"
	"crm-calendar-api/modules/calendar/repository"
)

// TokenService keeps a connection's access token valid, refreshing it
// through the provider's token endpoint when the cached token is within
// the safety window of expiry.
type TokenService interface {
	EnsureValidToken(ctx context.Context, conn *entity.CalendarConnection) (string, error)
}

type tokenService struct {
	repo     repository.CalendarRepository
	provider ProviderClient
}

func NewTokenService(repo repository.CalendarRepository, provider ProviderClient) TokenService {
	return &tokenService{repo: repo, provider: provider}
}

// EnsureValidToken returns a currently-valid access token for the
// connection. The fast path (cached token fresh beyond the safety window,
// or no expiry recorded) issues no network call and no store write. The
// slow path performs one refresh-grant exchange and exactly one store
// write, then mutates the connection in place so callers see the rotated
// token.
func (s *tokenService) EnsureValidToken(ctx context.Context, conn *entity.CalendarConnection) (string, error) {
	if conn.TokenFresh(time.Now(), constants.TokenRefreshSafetyWindow) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return "", errors.NewAppError(errors.ErrReauthorizationRequired, "reauthorization required", nil)
	}

	logger.Info("TokenService:EnsureValidToken:Refreshing", "connection_id", conn.ID, "member_id", conn.MemberID)

	token, err := s.provider.RefreshToken(ctx, *conn.RefreshToken)
	if err != nil {
		logger.Error("TokenService:EnsureValidToken:Refresh:Error", "error", err, "connection_id", conn.ID)
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	// The provider only sometimes rotates the refresh token.
	var newRefreshToken *string
	if token.RefreshToken != "" {
		newRefreshToken = &token.RefreshToken
	}

	if err := s.repo.UpdateTokens(ctx, conn.ID, token.AccessToken, newRefreshToken, expiresAt); err != nil {
		logger.Error("TokenService:EnsureValidToken:UpdateTokens:Error", "error", err, "connection_id", conn.ID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to persist refreshed token", err)
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiresAt = &expiresAt
	if newRefreshToken != nil {
		conn.RefreshToken = newRefreshToken
	}

	return token.AccessToken, nil
}
