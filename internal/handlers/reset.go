package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/hash"
	"github.com/proshop-dev/proshop-backend/internal/logging"
	"github.com/proshop-dev/proshop-backend/internal/mail"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/resettoken"
)

// ResetHandler runs the password reset flow: a user is either in no-reset
// state (zeroed token fields) or pending-reset (hash + expiry set). The
// stored hash never outlives a failed mail dispatch.
type ResetHandler struct {
	DB       *gorm.DB
	Mailer   mail.Mailer
	ResetURL string
}

func (h *ResetHandler) RequestReset(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "reset.request")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "sorry, we could not find the email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	plain, tokenHash, err := resettoken.New()
	if err != nil {
		l.Error("reset request failed", "reason", "cannot generate token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user.ResetTokenHash = tokenHash
	user.ResetExpiresAt = time.Now().Add(resettoken.Window).Unix()
	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	body := mail.ResetMessage(user.Name, h.ResetURL, plain)
	if err := h.Mailer.Send(user.Email, "Password reset token", body); err != nil {
		l.Error("reset mail dispatch failed", "user_id", user.ID, "error", err)

		// Roll back so no token hash remains without a delivered mail.
		user.ResetTokenHash = ""
		user.ResetExpiresAt = 0
		if rbErr := h.DB.Save(&user).Error; rbErr != nil {
			l.Error("reset rollback failed", "user_id", user.ID, "error", rbErr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "email could not be sent")
	}

	l.Info("reset token sent", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "reset email sent"})
}

// CheckReset verifies a presented token. Wrong and expired tokens are
// indistinguishable on purpose.
func (h *ResetHandler) CheckReset(c echo.Context) error {
	var req struct {
		ResetToken string `json:"reset_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ResetToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "please enter the verification code")
	}

	var user models.User
	err := h.DB.Where("reset_token_hash = ? AND reset_expires_at > ?",
		resettoken.Hash(req.ResetToken), time.Now().Unix()).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "sorry, the verification code is not correct or expired")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"verified": true})
}

func (h *ResetHandler) CompleteReset(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "reset.complete")

	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "new password is required")
	}

	var user models.User
	err := h.DB.Where("email = ? AND reset_token_hash <> '' AND reset_expires_at > ?",
		req.Email, time.Now().Unix()).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user.PasswordHash = pwHash
	user.ResetTokenHash = ""
	user.ResetExpiresAt = 0
	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("password reset completed", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}
