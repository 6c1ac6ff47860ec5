package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm-calendar-api/core/cache"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/core/utils"
	"crm-calendar-api/modules/calendar/dto"
	"crm-calendar-api/modules/calendar/entity"
	"crm-calendar-api/modules/calendar/repository"
	memberService "crm-calendar-api/modules/member/service"
)

// Callback failure stages, carried back to the calendar UI as a
// query-string error code.
const (
	StageMissingCode    = "missing_code"
	StageInvalidState   = "invalid_state"
	StageExchangeFailed = "exchange_failed"
	StageIdentityFailed = "identity_failed"
	StagePersistFailed  = "persist_failed"
)

// OAuthError tags a callback failure with the step it failed at so the
// redirect back to the UI carries a distinguishing code.
type OAuthError struct {
	Stage string
	Err   error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth callback failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("oauth callback failed at %s", e.Stage)
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// OAuthService drives the authorization flow: consent redirect out,
// code-exchange callback in. The connection row is only written on full
// success; every earlier failure leaves the store untouched.
type OAuthService interface {
	GetAuthURL(ctx context.Context, memberID uuid.UUID) (string, error)
	HandleCallback(ctx context.Context, code, state string) (uuid.UUID, error)
}

type oauthService struct {
	repo      repository.CalendarRepository
	provider  ProviderClient
	cache     cache.Cache
	memberSvc memberService.MemberService
}

func NewOAuthService(
	repo repository.CalendarRepository,
	providerClient ProviderClient,
	c cache.Cache,
	memberSvc memberService.MemberService,
) OAuthService {
	return &oauthService{
		repo:      repo,
		provider:  providerClient,
		cache:     c,
		memberSvc: memberSvc,
	}
}

// GetAuthURL builds the consent-screen URL for a member. The state carries
// the member identity so the callback can be correlated without a server
// session, plus a one-time nonce held in the cache for CSRF validation.
func (s *oauthService) GetAuthURL(ctx context.Context, memberID uuid.UUID) (string, error) {
	if _, err := s.memberSvc.GetMember(ctx, memberID); err != nil {
		return "", err
	}

	nonce := utils.GenerateRandomString(32)
	if err := s.cache.SetOAuthState(ctx, nonce, memberID.String()); err != nil {
		logger.Error("OAuthService:GetAuthURL:SetOAuthState:Error", "error", err, "member_id", memberID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to store state token", err)
	}

	state := nonce + "." + memberID.String()
	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback exchanges the authorization code once, resolves the
// account's calendar identity and upserts the connection keyed by
// (member, calendar) so repeat authorization updates rather than
// duplicates. Returns the member id for the success redirect.
func (s *oauthService) HandleCallback(ctx context.Context, code, state string) (uuid.UUID, error) {
	if code == "" {
		return uuid.Nil, &OAuthError{Stage: StageMissingCode}
	}

	memberID, err := s.consumeState(ctx, state)
	if err != nil {
		return uuid.Nil, &OAuthError{Stage: StageInvalidState, Err: err}
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return uuid.Nil, &OAuthError{Stage: StageExchangeFailed, Err: err}
	}

	info, err := s.provider.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return uuid.Nil, &OAuthError{Stage: StageIdentityFailed, Err: err}
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	var refreshToken *string
	if token.RefreshToken != "" {
		refreshToken = &token.RefreshToken
	}

	conn := &entity.CalendarConnection{
		MemberID:       memberID,
		CalendarID:     info.Email,
		Provider:       dto.ProviderGoogle,
		AccessToken:    token.AccessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: &expiresAt,
		SyncEnabled:    true,
	}

	if _, err := s.repo.UpsertConnection(ctx, conn); err != nil {
		return uuid.Nil, &OAuthError{Stage: StagePersistFailed, Err: err}
	}

	logger.Info("OAuthService:HandleCallback:Connected",
		"member_id", memberID,
		"calendar_id", info.Email,
		"has_refresh_token", refreshToken != nil,
	)
	return memberID, nil
}

// consumeState validates the nonce.memberID state parameter against the
// cached one-time nonce and deletes it on first use.
func (s *oauthService) consumeState(ctx context.Context, state string) (uuid.UUID, error) {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return uuid.Nil, fmt.Errorf("malformed state parameter")
	}
	nonce, rawMemberID := parts[0], parts[1]

	memberID, err := uuid.Parse(rawMemberID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("state carries invalid member id: %w", err)
	}

	stored, err := s.cache.GetOAuthState(ctx, nonce)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up state nonce: %w", err)
	}
	if stored == "" || stored != rawMemberID {
		return uuid.Nil, fmt.Errorf("unknown or expired state nonce")
	}

	if err := s.cache.DeleteOAuthState(ctx, nonce); err != nil {
		// One-time use is best effort; the nonce expires on its own.
		logger.Warn("OAuthService:consumeState:Delete:Error", "error", err)
	}

	return memberID, nil
}
