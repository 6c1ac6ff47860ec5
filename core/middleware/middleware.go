package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"crm-calendar-api/core/controller"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/utils"
)

const ContextKeyMemberID = "member_id"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the bearer JWT and stores the member id on the
// request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "missing or malformed authorization header")
			}

			claims, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "invalid or expired token")
			}

			c.Set(ContextKeyMemberID, claims.MemberID)
			return next(c)
		}
	}
}

// MemberIDFromContext returns the authenticated member id set by AuthMiddleware.
func MemberIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyMemberID).(uuid.UUID)
	return id, ok
}
