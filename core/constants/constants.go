package constants

import "time"

// Database pool settings
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Timeouts
const (
	DefaultTimeout  = 30 * time.Second
	ProviderTimeout = 10 * time.Second
)

// Google Calendar provider
const (
	TokenRefreshSafetyWindow = 5 * time.Minute
	EventsMaxResults         = 250
)

// OAuth state tokens
const (
	OAuthStateTTL      = 10 * time.Minute
	RedisKeyOAuthState = "oauth_state:"
)

// Asynq task types
const (
	TaskRefreshTokens = "calendar:refresh_tokens"
)

// JWT token scopes
const (
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"
)
