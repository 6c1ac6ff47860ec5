package member

import (
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/database"
	"crm-calendar-api/core/middleware"
	"crm-calendar-api/modules/member/controller"
	"crm-calendar-api/modules/member/repository"
	"crm-calendar-api/modules/member/router"
	"crm-calendar-api/modules/member/service"
)

func Init(e *echo.Echo, db database.IDatabase) service.MemberService {
	repo := repository.NewMemberRepository(db)
	svc := service.NewMemberService(repo)
	ctrl := controller.NewMemberController(svc)

	mw := middleware.NewMiddleware()
	router.NewMemberRouter(ctrl).Setup(e, mw)

	return svc
}
