package router

import (
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/middleware"
	"crm-calendar-api/modules/member/controller"
)

type MemberRouter struct {
	controller *controller.MemberController
}

func NewMemberRouter(controller *controller.MemberController) *MemberRouter {
	return &MemberRouter{controller: controller}
}

func (r *MemberRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	memberRoutes := v1.Group("/private/members")
	memberRoutes.Use(mw.AuthMiddleware())

	memberRoutes.GET("", r.controller.ListMembers)
	memberRoutes.POST("", r.controller.CreateMember)
}
