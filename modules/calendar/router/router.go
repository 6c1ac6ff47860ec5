package router

import (
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/middleware"
	"crm-calendar-api/modules/calendar/controller"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{controller: controller}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Public routes (browser-driven OAuth flow, no bearer token)
	publicRoutes := v1.Group("/public/calendar")
	publicRoutes.GET("/connect", r.controller.Connect)
	publicRoutes.GET("/callback", r.controller.Callback)

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	calendarRoutes.GET("/events", r.controller.ListEvents)
	calendarRoutes.GET("/connections", r.controller.GetConnections)
	calendarRoutes.DELETE("/connections/:id", r.controller.Disconnect)
}
