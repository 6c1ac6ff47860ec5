package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/calendar/dto"
	"crm-calendar-api/modules/calendar/entity"
	"crm-calendar-api/modules/calendar/provider"
	"crm-calendar-api/modules/calendar/repository"
	memberEntity "crm-calendar-api/modules/member/entity"
	memberService "crm-calendar-api/modules/member/service"
)

// Title shown when the provider omits the event summary, so downstream
// consumers never see a null title.
const untitledEvent = "(no title)"

type CalendarService interface {
	// Aggregation
	ListTeamEvents(ctx context.Context, startTime, endTime time.Time, memberIDs []uuid.UUID) ([]dto.TeamEvent, error)

	// Connection management
	GetConnections(ctx context.Context, memberID *uuid.UUID) ([]dto.CalendarConnectionResponse, error)
	DisconnectCalendar(ctx context.Context, memberID uuid.UUID, connectionID uuid.UUID) error
}

type calendarService struct {
	repo      repository.CalendarRepository
	tokens    TokenService
	provider  ProviderClient
	memberSvc memberService.MemberService
}

func NewCalendarService(
	repo repository.CalendarRepository,
	tokens TokenService,
	providerClient ProviderClient,
	memberSvc memberService.MemberService,
) CalendarService {
	return &calendarService{
		repo:      repo,
		tokens:    tokens,
		provider:  providerClient,
		memberSvc: memberSvc,
	}
}

// taggedEvent pairs the response shape with a parsed start for sorting.
type taggedEvent struct {
	event dto.TeamEvent
	start time.Time
}

// ListTeamEvents fans out token refresh plus event fetch across every
// enabled connection concurrently, tags each event with its owning
// member, merges and sorts the results. A failing connection gets its
// error recorded and contributes zero events; the aggregate call itself
// only fails on store errors before the fan-out.
func (s *calendarService) ListTeamEvents(ctx context.Context, startTime, endTime time.Time, memberIDs []uuid.UUID) ([]dto.TeamEvent, error) {
	connections, err := s.repo.ListEnabledConnections(ctx, memberIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list connections", err)
	}

	// No calendars selected or connected is an empty view, not an error.
	if len(connections) == 0 {
		return []dto.TeamEvent{}, nil
	}

	ownerIDs := make([]uuid.UUID, 0, len(connections))
	seen := make(map[uuid.UUID]bool, len(connections))
	for _, conn := range connections {
		if !seen[conn.MemberID] {
			seen[conn.MemberID] = true
			ownerIDs = append(ownerIDs, conn.MemberID)
		}
	}

	members, err := s.memberSvc.GetMembersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		merged []taggedEvent
		wg     sync.WaitGroup
	)

	for i := range connections {
		conn := connections[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			owner, ok := members[conn.MemberID]
			if !ok {
				// Deactivated member with a still-enabled connection.
				logger.Warn("CalendarService:ListTeamEvents:OwnerInactive",
					"connection_id", conn.ID, "member_id", conn.MemberID)
				return
			}

			events, fetchErr := s.fetchConnectionEvents(ctx, &conn, startTime, endTime, owner)
			if fetchErr != nil {
				logger.Error("CalendarService:ListTeamEvents:ConnectionFailed",
					"connection_id", conn.ID, "member_id", conn.MemberID, "error", fetchErr)
				if recErr := s.repo.RecordSyncError(ctx, conn.ID, appErrorMessage(fetchErr)); recErr != nil {
					logger.Error("CalendarService:ListTeamEvents:RecordSyncError:Error", "error", recErr, "connection_id", conn.ID)
				}
				return
			}

			if recErr := s.repo.RecordSyncSuccess(ctx, conn.ID, time.Now()); recErr != nil {
				logger.Error("CalendarService:ListTeamEvents:RecordSyncSuccess:Error", "error", recErr, "connection_id", conn.ID)
			}

			mu.Lock()
			merged = append(merged, events...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Deterministic order regardless of fetch-completion order: ascending
	// by start time, ties broken by composite id.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].start.Equal(merged[j].start) {
			return merged[i].event.ID < merged[j].event.ID
		}
		return merged[i].start.Before(merged[j].start)
	})

	result := make([]dto.TeamEvent, len(merged))
	for i, te := range merged {
		result[i] = te.event
	}
	return result, nil
}

// fetchConnectionEvents runs the token-refresh-then-fetch sequence for one
// connection and maps the provider payload into the member-tagged shape.
func (s *calendarService) fetchConnectionEvents(
	ctx context.Context,
	conn *entity.CalendarConnection,
	startTime, endTime time.Time,
	owner memberEntity.Member,
) ([]taggedEvent, error) {
	accessToken, err := s.tokens.EnsureValidToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	providerEvents, err := s.provider.ListEvents(ctx, accessToken, conn.CalendarID, startTime, endTime)
	if err != nil {
		return nil, err
	}

	events := make([]taggedEvent, 0, len(providerEvents))
	for _, pe := range providerEvents {
		start, parseErr := pe.Start.Parse()
		if parseErr != nil {
			logger.Warn("CalendarService:fetchConnectionEvents:BadStartTime",
				"connection_id", conn.ID, "event_id", pe.ID, "error", parseErr)
			continue
		}

		events = append(events, taggedEvent{
			event: mapProviderEvent(conn, owner, pe),
			start: start,
		})
	}
	return events, nil
}

func mapProviderEvent(conn *entity.CalendarConnection, owner memberEntity.Member, pe provider.Event) dto.TeamEvent {
	title := pe.Summary
	if title == "" {
		title = untitledEvent
	}

	startTime := pe.Start.DateTime
	if startTime == "" {
		startTime = pe.Start.Date
	}
	endTime := pe.End.DateTime
	if endTime == "" {
		endTime = pe.End.Date
	}

	var attendees []dto.EventAttendee
	for _, a := range pe.Attendees {
		attendees = append(attendees, dto.EventAttendee{
			Email: a.Email,
			Name:  a.DisplayName,
		})
	}

	return dto.TeamEvent{
		// Composite id: the same provider event id on two calendars stays
		// two distinct entries.
		ID:          conn.ID.String() + "_" + pe.ID,
		MemberID:    owner.ID.String(),
		MemberName:  owner.Name,
		MemberColor: owner.Color,
		Title:       title,
		Description: pe.Description,
		Location:    pe.Location,
		StartTime:   startTime,
		EndTime:     endTime,
		AllDay:      pe.Start.AllDay(),
		Attendees:   attendees,
		MeetingLink: pe.HangoutLink,
	}
}

// GetConnections returns connection rows with sync status, for one member
// or team-wide when memberID is nil.
func (s *calendarService) GetConnections(ctx context.Context, memberID *uuid.UUID) ([]dto.CalendarConnectionResponse, error) {
	var (
		connections []entity.CalendarConnection
		err         error
	)
	if memberID != nil {
		connections, err = s.repo.GetConnectionsByMemberID(ctx, *memberID)
	} else {
		connections, err = s.repo.ListConnections(ctx)
	}
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get connections", err)
	}

	result := make([]dto.CalendarConnectionResponse, 0, len(connections))
	for _, conn := range connections {
		resp := dto.CalendarConnectionResponse{
			ID:          conn.ID.String(),
			MemberID:    conn.MemberID.String(),
			CalendarID:  conn.CalendarID,
			Provider:    conn.Provider,
			SyncEnabled: conn.SyncEnabled,
			LastError:   conn.LastError,
			ConnectedAt: conn.CreatedAt.Format(time.RFC3339),
		}
		if conn.LastSyncedAt != nil {
			syncedAt := conn.LastSyncedAt.Format(time.RFC3339)
			resp.LastSyncedAt = &syncedAt
		}
		result = append(result, resp)
	}
	return result, nil
}

// DisconnectCalendar flips sync off for one of the member's connections.
func (s *calendarService) DisconnectCalendar(ctx context.Context, memberID uuid.UUID, connectionID uuid.UUID) error {
	if err := s.repo.DisableConnection(ctx, connectionID, memberID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to disconnect calendar", err)
	}
	return nil
}

// appErrorMessage strips the code prefix so the stored error reads like
// the user-facing message.
func appErrorMessage(err error) string {
	if ae, ok := err.(*errors.AppError); ok {
		return ae.Message
	}
	return err.Error()
}
