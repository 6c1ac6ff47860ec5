package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"crm-calendar-api/core/config"
	"crm-calendar-api/core/constants"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
)

// GoogleClient talks to the Google OAuth and Calendar endpoints. Endpoint
// URLs come from config so tests can point them at a local server.
type GoogleClient struct {
	cfg    config.GoogleAPIConfig
	client *http.Client
}

func NewGoogleClient(cfg config.GoogleAPIConfig) *GoogleClient {
	return &GoogleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: constants.ProviderTimeout},
	}
}

func (g *GoogleClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  g.cfg.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/calendar.readonly",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  g.cfg.AuthURL,
			TokenURL: g.cfg.TokenURL,
		},
	}
}

// AuthCodeURL builds the consent-screen URL. Offline access is requested so
// a refresh token is issued; ApprovalForce makes repeat authorizations
// return a refresh token as well.
func (g *GoogleClient) AuthCodeURL(state string) string {
	return g.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token pair.
func (g *GoogleClient) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	token, err := g.oauthConfig().Exchange(ctx, code)
	if err != nil {
		logger.Error("GoogleClient:ExchangeCode:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrProvider, "failed to exchange authorization code", err)
	}

	expiresIn := 0
	if !token.Expiry.IsZero() {
		expiresIn = int(time.Until(token.Expiry).Seconds())
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// RefreshToken exchanges a refresh token for a new access token using the
// standard refresh grant. Non-2xx responses become a ProviderError carrying
// the response body; no automatic retry.
func (g *GoogleClient) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("client_id", g.cfg.ClientID)
	data.Set("client_secret", g.cfg.ClientSecret)
	data.Set("refresh_token", refreshToken)
	data.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error("GoogleClient:RefreshToken:DoRequest:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrProvider, "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Error("GoogleClient:RefreshToken:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrProvider,
			fmt.Sprintf("token refresh failed: %d: %s", resp.StatusCode, string(body)), nil)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		logger.Error("GoogleClient:RefreshToken:Decode:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrProvider, "failed to parse token response", err)
	}

	if token.AccessToken == "" {
		return nil, errors.NewAppError(errors.ErrProvider, "no access_token in refresh response", nil)
	}
	if token.ExpiresIn <= 0 {
		token.ExpiresIn = 3600
	}

	return &token, nil
}

// FetchUserInfo resolves the authenticated account's identity.
func (g *GoogleClient) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error("GoogleClient:FetchUserInfo:DoRequest:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrProvider, "identity endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Error("GoogleClient:FetchUserInfo:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrProvider,
			fmt.Sprintf("identity fetch failed: %d", resp.StatusCode), nil)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewAppError(errors.ErrProvider, "failed to parse identity response", err)
	}
	if info.Email == "" {
		return nil, errors.NewAppError(errors.ErrProvider, "identity response missing email", nil)
	}

	return &info, nil
}

// ListEvents fetches one page of events overlapping [start, end) from one
// calendar, with recurring events expanded to concrete occurrences and
// pre-sorted by start time by the provider. A single page capped at
// EventsMaxResults is sufficient for calendar display.
func (g *GoogleClient) ListEvents(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]Event, error) {
	params := url.Values{}
	params.Set("timeMin", start.Format(time.RFC3339))
	params.Set("timeMax", end.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", strconv.Itoa(constants.EventsMaxResults))

	apiURL := fmt.Sprintf("%s/calendars/%s/events?%s",
		g.cfg.CalendarAPIBase, url.PathEscape(calendarID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error("GoogleClient:ListEvents:DoRequest:Error", "error", err, "calendar_id", calendarID)
		return nil, errors.NewAppError(errors.ErrProvider, "events endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Error("GoogleClient:ListEvents:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrProvider,
			fmt.Sprintf("events fetch failed: %d: %s", resp.StatusCode, string(body)), nil)
	}

	var eventsResponse struct {
		Items []Event `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&eventsResponse); err != nil {
		logger.Error("GoogleClient:ListEvents:Decode:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrProvider, "failed to parse events response", err)
	}

	return eventsResponse.Items, nil
}
