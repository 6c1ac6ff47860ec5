package controller

import (
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/controller"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/modules/member/dto"
	"crm-calendar-api/modules/member/service"
)

type MemberController struct {
	controller.BaseController
	service service.MemberService
}

func NewMemberController(service service.MemberService) *MemberController {
	return &MemberController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// ListMembers returns the active team roster
// GET /api/v1/private/members
func (c *MemberController) ListMembers(ctx echo.Context) error {
	members, err := c.service.ListMembers(ctx.Request().Context())
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, dto.MemberListResponse{Members: members}, "Members retrieved successfully")
}

// CreateMember adds a member to the roster
// POST /api/v1/private/members
func (c *MemberController) CreateMember(ctx echo.Context) error {
	requestData := new(dto.CreateMemberRequest)
	if err := ctx.Bind(requestData); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request data", nil)
	}

	member, err := c.service.CreateMember(ctx.Request().Context(), requestData)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, member, "Member created successfully")
}
