package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"crm-calendar-api/modules/calendar/entity"
	"crm-calendar-api/modules/calendar/provider"
	memberDto "crm-calendar-api/modules/member/dto"
	memberEntity "crm-calendar-api/modules/member/entity"
)

// ---- in-memory connection store ----

type fakeRepo struct {
	mu               sync.Mutex
	rows             map[uuid.UUID]*entity.CalendarConnection
	byKey            map[string]uuid.UUID // member_id+calendar_id -> row id
	updateTokenCalls int
	failUpdateTokens bool
	failUpsert       bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:  make(map[uuid.UUID]*entity.CalendarConnection),
		byKey: make(map[string]uuid.UUID),
	}
}

func (r *fakeRepo) key(memberID uuid.UUID, calendarID string) string {
	return memberID.String() + "|" + calendarID
}

func (r *fakeRepo) add(conn entity.CalendarConnection) *entity.CalendarConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	conn.CreatedAt = time.Now()
	conn.UpdatedAt = time.Now()
	r.rows[conn.ID] = &conn
	r.byKey[r.key(conn.MemberID, conn.CalendarID)] = conn.ID
	return &conn
}

func (r *fakeRepo) get(id uuid.UUID) *entity.CalendarConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		copied := *row
		return &copied
	}
	return nil
}

func (r *fakeRepo) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	if r.failUpsert {
		return nil, fmt.Errorf("store unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(conn.MemberID, conn.CalendarID)
	if id, ok := r.byKey[k]; ok {
		existing := r.rows[id]
		existing.Provider = conn.Provider
		existing.AccessToken = conn.AccessToken
		existing.RefreshToken = conn.RefreshToken
		existing.TokenExpiresAt = conn.TokenExpiresAt
		existing.SyncEnabled = conn.SyncEnabled
		existing.LastError = nil
		existing.UpdatedAt = time.Now()
		conn.ID = existing.ID
		return conn, nil
	}
	conn.ID = uuid.New()
	conn.CreatedAt = time.Now()
	conn.UpdatedAt = time.Now()
	copied := *conn
	r.rows[conn.ID] = &copied
	r.byKey[k] = conn.ID
	return conn, nil
}

func (r *fakeRepo) GetConnection(ctx context.Context, id uuid.UUID) (*entity.CalendarConnection, error) {
	return r.get(id), nil
}

func (r *fakeRepo) GetConnectionsByMemberID(ctx context.Context, memberID uuid.UUID) ([]entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CalendarConnection
	for _, row := range r.rows {
		if row.MemberID == memberID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListConnections(ctx context.Context) ([]entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CalendarConnection
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (r *fakeRepo) ListEnabledConnections(ctx context.Context, memberIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filter := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		filter[id] = true
	}
	var out []entity.CalendarConnection
	for _, row := range r.rows {
		if !row.SyncEnabled {
			continue
		}
		if len(memberIDs) > 0 && !filter[row.MemberID] {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (r *fakeRepo) ListConnectionsExpiringBefore(ctx context.Context, deadline time.Time) ([]entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CalendarConnection
	for _, row := range r.rows {
		if row.SyncEnabled && row.RefreshToken != nil && row.TokenExpiresAt != nil && row.TokenExpiresAt.Before(deadline) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateTokenCalls++
	if r.failUpdateTokens {
		return fmt.Errorf("store unavailable")
	}
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("connection %s not found", id)
	}
	row.AccessToken = accessToken
	if refreshToken != nil {
		row.RefreshToken = refreshToken
	}
	row.TokenExpiresAt = &expiresAt
	row.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) RecordSyncError(ctx context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.LastError = &message
	}
	return nil
}

func (r *fakeRepo) RecordSyncSuccess(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.LastSyncedAt = &syncedAt
		row.LastError = nil
	}
	return nil
}

func (r *fakeRepo) DisableConnection(ctx context.Context, id uuid.UUID, memberID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok && row.MemberID == memberID {
		row.SyncEnabled = false
	}
	return nil
}

// ---- provider fake ----

type fakeProvider struct {
	mu sync.Mutex

	refreshCalls  int
	refreshTokens []provider.Token // returned in sequence; last repeats
	refreshErr    error

	exchangeCalls int
	exchangeToken *provider.Token
	exchangeErr   error

	userInfo    *provider.UserInfo
	userInfoErr error

	listCalls        int
	eventsByCalendar map[string][]provider.Event
	listErrByToken   map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		eventsByCalendar: make(map[string][]provider.Event),
		listErrByToken:   make(map[string]error),
	}
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/consent?access_type=offline&state=" + url.QueryEscape(state)
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*provider.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	if p.exchangeToken != nil {
		return p.exchangeToken, nil
	}
	return &provider.Token{
		AccessToken:  "access-for-" + code,
		RefreshToken: "refresh-for-" + code,
		ExpiresIn:    3600,
	}, nil
}

func (p *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*provider.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	if len(p.refreshTokens) == 0 {
		return &provider.Token{AccessToken: "refreshed-token", ExpiresIn: 3600}, nil
	}
	idx := p.refreshCalls - 1
	if idx >= len(p.refreshTokens) {
		idx = len(p.refreshTokens) - 1
	}
	token := p.refreshTokens[idx]
	return &token, nil
}

func (p *fakeProvider) FetchUserInfo(ctx context.Context, accessToken string) (*provider.UserInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	if p.userInfo != nil {
		return p.userInfo, nil
	}
	return &provider.UserInfo{ID: "acct-1", Email: "owner@example.com"}, nil
}

func (p *fakeProvider) ListEvents(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]provider.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if err, ok := p.listErrByToken[accessToken]; ok {
		return nil, err
	}
	return p.eventsByCalendar[calendarID], nil
}

// ---- cache fake ----

type fakeCache struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[string]string)}
}

func (c *fakeCache) SetOAuthState(ctx context.Context, nonce string, memberID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[nonce] = memberID
	return nil
}

func (c *fakeCache) GetOAuthState(ctx context.Context, nonce string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[nonce], nil
}

func (c *fakeCache) DeleteOAuthState(ctx context.Context, nonce string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, nonce)
	return nil
}

// ---- member service fake ----

type fakeMemberService struct {
	members map[uuid.UUID]memberEntity.Member
}

func newFakeMemberService(members ...memberEntity.Member) *fakeMemberService {
	byID := make(map[uuid.UUID]memberEntity.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	return &fakeMemberService{members: byID}
}

func (s *fakeMemberService) GetMember(ctx context.Context, id uuid.UUID) (*memberEntity.Member, error) {
	if m, ok := s.members[id]; ok {
		return &m, nil
	}
	return nil, fmt.Errorf("member %s not found", id)
}

func (s *fakeMemberService) GetMembersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]memberEntity.Member, error) {
	out := make(map[uuid.UUID]memberEntity.Member)
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *fakeMemberService) ListMembers(ctx context.Context) ([]memberDto.MemberResponse, error) {
	return nil, nil
}

func (s *fakeMemberService) CreateMember(ctx context.Context, req *memberDto.CreateMemberRequest) (*memberDto.MemberResponse, error) {
	return nil, nil
}

// ---- helpers ----

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
