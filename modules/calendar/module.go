package calendar

import (
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/cache"
	"crm-calendar-api/core/config"
	"crm-calendar-api/core/database"
	"crm-calendar-api/core/middleware"
	"crm-calendar-api/modules/calendar/controller"
	"crm-calendar-api/modules/calendar/provider"
	"crm-calendar-api/modules/calendar/repository"
	"crm-calendar-api/modules/calendar/router"
	"crm-calendar-api/modules/calendar/service"
	memberService "crm-calendar-api/modules/member/service"
)

func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, memberSvc memberService.MemberService) service.TokenService {
	cfg := config.Get()

	googleClient := provider.NewGoogleClient(cfg.GoogleAPI)

	repo := repository.NewCalendarRepository(db)
	tokenSvc := service.NewTokenService(repo, googleClient)
	calendarSvc := service.NewCalendarService(repo, tokenSvc, googleClient, memberSvc)
	oauthSvc := service.NewOAuthService(repo, googleClient, c, memberSvc)

	calendarController := controller.NewCalendarController(calendarSvc, oauthSvc)

	mw := middleware.NewMiddleware()
	router.NewCalendarRouter(calendarController).Setup(e, mw)

	return tokenSvc
}
