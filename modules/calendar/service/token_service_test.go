package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-calendar-api/core/errors"
	"crm-calendar-api/modules/calendar/entity"
	"crm-calendar-api/modules/calendar/provider"
)

func TestEnsureValidToken_FreshTokenSkipsNetworkAndStore(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "cached-token",
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(1 * time.Hour)),
		SyncEnabled:    true,
	})

	token, err := svc.EnsureValidToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Equal(t, 0, prov.refreshCalls)
	assert.Equal(t, 0, repo.updateTokenCalls)
}

func TestEnsureValidToken_NoExpiryTreatedAsFresh(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:    uuid.New(),
		CalendarID:  "a@example.com",
		AccessToken: "cached-token",
		SyncEnabled: true,
	})

	token, err := svc.EnsureValidToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Equal(t, 0, prov.refreshCalls)
}

func TestEnsureValidToken_InsideSafetyWindowRefreshes(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	prov.refreshTokens = []provider.Token{{AccessToken: "new-token", ExpiresIn: 3600}}
	svc := NewTokenService(repo, prov)

	// Expires in 2 minutes: inside the 5-minute safety window.
	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(2 * time.Minute)),
		SyncEnabled:    true,
	})

	token, err := svc.EnsureValidToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
	assert.Equal(t, 1, prov.refreshCalls)
	assert.Equal(t, 1, repo.updateTokenCalls)

	stored := repo.get(conn.ID)
	assert.Equal(t, "new-token", stored.AccessToken)
	require.NotNil(t, stored.TokenExpiresAt)
	assert.True(t, stored.TokenExpiresAt.After(time.Now().Add(50*time.Minute)))
	// Connection mutated in place for the caller.
	assert.Equal(t, "new-token", conn.AccessToken)
}

func TestEnsureValidToken_ExpiredWithoutRefreshTokenFails(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		TokenExpiresAt: timePtr(time.Now().Add(-1 * time.Hour)),
		SyncEnabled:    true,
	})

	_, err := svc.EnsureValidToken(context.Background(), conn)
	require.Error(t, err)

	ae, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrReauthorizationRequired, ae.Code)
	assert.Contains(t, ae.Message, "reauthorization required")
	assert.Equal(t, 0, prov.refreshCalls)
	assert.Equal(t, 0, repo.updateTokenCalls)
}

func TestEnsureValidToken_RefreshTokenOnlyRotatedWhenReturned(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	// Provider returns no refresh token: the stored one must survive.
	prov.refreshTokens = []provider.Token{{AccessToken: "new-token", ExpiresIn: 1800}}
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		RefreshToken:   strPtr("original-refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(-1 * time.Minute)),
		SyncEnabled:    true,
	})

	_, err := svc.EnsureValidToken(context.Background(), conn)
	require.NoError(t, err)

	stored := repo.get(conn.ID)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, "original-refresh", *stored.RefreshToken)
}

func TestEnsureValidToken_ProviderFailureLeavesStoreUntouched(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	prov.refreshErr = errors.NewAppError(errors.ErrProvider, "token refresh failed: 500: upstream busy", nil)
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(-1 * time.Hour)),
		SyncEnabled:    true,
	})

	_, err := svc.EnsureValidToken(context.Background(), conn)
	require.Error(t, err)
	assert.Equal(t, 0, repo.updateTokenCalls)
	assert.Equal(t, "stale-token", repo.get(conn.ID).AccessToken)
}

func TestEnsureValidToken_StoreFailurePropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.failUpdateTokens = true
	prov := newFakeProvider()
	svc := NewTokenService(repo, prov)

	conn := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(-1 * time.Hour)),
		SyncEnabled:    true,
	})

	_, err := svc.EnsureValidToken(context.Background(), conn)
	require.Error(t, err)

	ae, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInternalServer, ae.Code)
}

func TestEnsureValidToken_ConcurrentRefreshesKeepStoreConsistent(t *testing.T) {
	repo := newFakeRepo()
	prov := newFakeProvider()
	prov.refreshTokens = []provider.Token{
		{AccessToken: "token-one", ExpiresIn: 3600},
		{AccessToken: "token-two", ExpiresIn: 3600},
	}
	svc := NewTokenService(repo, prov)

	seed := repo.add(entity.CalendarConnection{
		MemberID:       uuid.New(),
		CalendarID:     "a@example.com",
		AccessToken:    "stale-token",
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(time.Now().Add(-1 * time.Hour)),
		SyncEnabled:    true,
	})

	// Two requests each load their own copy of the row, then refresh
	// concurrently. Last write wins; the stored token must be one of the
	// two provider-issued values.
	copyOne := *repo.get(seed.ID)
	copyTwo := *repo.get(seed.ID)

	var wg sync.WaitGroup
	for _, conn := range []*entity.CalendarConnection{&copyOne, &copyTwo} {
		wg.Add(1)
		go func(c *entity.CalendarConnection) {
			defer wg.Done()
			_, err := svc.EnsureValidToken(context.Background(), c)
			assert.NoError(t, err)
		}(conn)
	}
	wg.Wait()

	stored := repo.get(seed.ID)
	assert.Contains(t, []string{"token-one", "token-two"}, stored.AccessToken)
	assert.Equal(t, 2, prov.refreshCalls)
	assert.Equal(t, 2, repo.updateTokenCalls)
}
