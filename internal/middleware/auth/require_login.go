package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/token"
)

const userKey = "user"

type Middleware struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// RequireAuth verifies the bearer token and attaches the resolved user to
// the request context. The user is re-read from the store so role changes
// take effect without waiting for token expiry.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := bearerToken(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, no token")
		}

		userID, err := token.Parse(raw, m.JWTSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
		}

		var user models.User
		if err := m.DB.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		c.Set(userKey, &user)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c echo.Context) (*models.User, error) {
	u, ok := c.Get(userKey).(*models.User)
	if !ok || u == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authorized")
	}
	return u, nil
}
