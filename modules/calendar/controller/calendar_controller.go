package controller

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/config"
	"crm-calendar-api/core/controller"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/core/middleware"
	"crm-calendar-api/modules/calendar/dto"
	"crm-calendar-api/modules/calendar/service"
)

type CalendarController struct {
	controller.BaseController
	calendarService service.CalendarService
	oauthService    service.OAuthService
}

func NewCalendarController(calendarService service.CalendarService, oauthService service.OAuthService) *CalendarController {
	return &CalendarController{
		BaseController:  controller.NewBaseController(),
		calendarService: calendarService,
		oauthService:    oauthService,
	}
}

// Connect starts the OAuth flow for a team member
// GET /api/v1/public/calendar/connect?member_id=...
func (c *CalendarController) Connect(ctx echo.Context) error {
	rawMemberID := ctx.QueryParam("member_id")
	if rawMemberID == "" {
		return c.BadRequest(errors.ErrInvalidInput, "member_id is required")
	}

	memberID, err := uuid.Parse(rawMemberID)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "member_id must be a valid UUID")
	}

	authURL, err := c.oauthService.GetAuthURL(ctx.Request().Context(), memberID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return ctx.Redirect(http.StatusFound, authURL)
}

// Callback handles the provider redirect after consent
// GET /api/v1/public/calendar/callback?code=...&state=...
func (c *CalendarController) Callback(ctx echo.Context) error {
	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")
	errorParam := ctx.QueryParam("error")

	if errorParam != "" {
		logger.Error("CalendarController:Callback:ProviderError",
			"error", errorParam, "description", ctx.QueryParam("error_description"))
		return c.redirectToCalendar(ctx, "calendar_error", "consent_denied")
	}

	_, err := c.oauthService.HandleCallback(ctx.Request().Context(), code, state)
	if err != nil {
		if oe, ok := err.(*service.OAuthError); ok {
			return c.redirectToCalendar(ctx, "calendar_error", oe.Stage)
		}
		logger.Error("CalendarController:Callback:Error", "error", err)
		return c.redirectToCalendar(ctx, "calendar_error", "internal")
	}

	return c.redirectToCalendar(ctx, "calendar", "connected")
}

func (c *CalendarController) redirectToCalendar(ctx echo.Context, key, value string) error {
	base := "/"
	if cfg, ok := config.GetSafe(); ok {
		base = cfg.Frontend.CalendarURL
	}

	q := url.Values{}
	q.Set(key, value)
	return ctx.Redirect(http.StatusFound, base+"?"+q.Encode())
}

// ListEvents returns the merged, sorted team event timeline
// GET /api/v1/private/calendar/events?start_time=...&end_time=...&member_ids=a,b
func (c *CalendarController) ListEvents(ctx echo.Context) error {
	startTimeStr := ctx.QueryParam("start_time")
	endTimeStr := ctx.QueryParam("end_time")

	if startTimeStr == "" || endTimeStr == "" {
		return c.BadRequest(errors.ErrInvalidInput, "start_time and end_time are required")
	}

	startTime, err := time.Parse(time.RFC3339, startTimeStr)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid start_time format")
	}

	endTime, err := time.Parse(time.RFC3339, endTimeStr)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid end_time format")
	}

	var memberIDs []uuid.UUID
	if raw := ctx.QueryParam("member_ids"); raw != "" {
		for _, idStr := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(idStr))
			if err != nil {
				return c.BadRequest(errors.ErrInvalidInput, "member_ids contains an invalid UUID")
			}
			memberIDs = append(memberIDs, id)
		}
	}

	events, err := c.calendarService.ListTeamEvents(ctx.Request().Context(), startTime, endTime, memberIDs)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, dto.TeamEventListResponse{Events: events}, "Events retrieved successfully")
}

// GetConnections returns connection sync status, team-wide or for one member
// GET /api/v1/private/calendar/connections?member_id=...
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	var memberID *uuid.UUID
	if raw := ctx.QueryParam("member_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.BadRequest(errors.ErrInvalidInput, "member_id must be a valid UUID")
		}
		memberID = &id
	}

	connections, err := c.calendarService.GetConnections(ctx.Request().Context(), memberID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, dto.CalendarConnectionListResponse{Connections: connections}, "Connections retrieved successfully")
}

// Disconnect flips sync off for one of the caller's connections
// DELETE /api/v1/private/calendar/connections/:id
func (c *CalendarController) Disconnect(ctx echo.Context) error {
	memberID, ok := middleware.MemberIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid member")
	}

	connectionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "connection id must be a valid UUID")
	}

	if err := c.calendarService.DisconnectCalendar(ctx.Request().Context(), memberID, connectionID); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Disconnected successfully")
}
