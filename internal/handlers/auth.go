package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/hash"
	"github.com/proshop-dev/proshop-backend/internal/logging"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
	"github.com/proshop-dev/proshop-backend/internal/token"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	TokenTTL  time.Duration
	Producer  mykafka.Publisher
}

type userResponse struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Token string      `json:"token,omitempty"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, email and password are required")
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// A concurrent registration can slip past the lookup above and
		// land on the unique index instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	signed, err := token.Sign(user.ID, h.TokenTTL, h.JWTSecret)
	if err != nil {
		l.Error("register failed", "reason", "cannot sign token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})

	l.Info("user registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, userResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Token: signed,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	signed, err := token.Sign(user.ID, h.TokenTTL, h.JWTSecret)
	if err != nil {
		l.Error("login failed", "reason", "cannot sign token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
		"email":   user.Email,
	})

	l.Info("login successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, userResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Token: signed,
	})
}

func (h *AuthHandler) GetProfile(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role,
	})
}

// UpdateProfile mutates name/email/password for the authenticated user.
// Empty fields keep their current value. A fresh token is returned so the
// client can keep the session after an email change.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Password != "" {
		pwHash, err := hash.HashPassword(req.Password)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		user.PasswordHash = pwHash
	}

	if err := h.DB.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "email already in use")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	signed, err := token.Sign(user.ID, h.TokenTTL, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, userResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Token: signed,
	})
}
