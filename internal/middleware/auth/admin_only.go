package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminOnly composes with RequireAuth and gates on the admin role.
func (m *Middleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(func(c echo.Context) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !user.Role.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "not authorized as admin")
		}
		return next(c)
	})
}
