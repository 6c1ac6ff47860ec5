package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-calendar-api/core/config"
	"crm-calendar-api/core/constants"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	config.Set(&config.Config{
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			AccessTokenTTLMin: 15,
		},
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	setTestConfig(t)
	memberID := uuid.New()

	token, err := GenerateToken(memberID, constants.ScopeTokenAccess)
	require.NoError(t, err)

	claims, err := ValidateAndParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, constants.ScopeTokenAccess, claims.Scope)
}

func TestValidateAndParseToken_RejectsWrongScope(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken(uuid.New(), constants.ScopeTokenRefresh)
	require.NoError(t, err)

	_, err = ValidateAndParseToken(token)
	require.Error(t, err)
}

func TestValidateAndParseToken_RejectsTamperedToken(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken(uuid.New(), constants.ScopeTokenAccess)
	require.NoError(t, err)

	_, err = ValidateAndParseToken(token + "x")
	require.Error(t, err)
}

func TestGetTokenFromHeader(t *testing.T) {
	e := echo.New()

	newCtx := func(header string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		return e.NewContext(req, httptest.NewRecorder())
	}

	token, err := GetTokenFromHeader(newCtx("Bearer abc123"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = GetTokenFromHeader(newCtx(""))
	require.Error(t, err)

	_, err = GetTokenFromHeader(newCtx("Basic abc123"))
	require.Error(t, err)
}
