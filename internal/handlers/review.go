package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/proshop-dev/proshop-backend/internal/logging"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
)

type ReviewHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

// AddReview appends a review and recomputes the product aggregate. The
// whole check-append-recompute runs in one transaction holding the product
// row lock, so under READ COMMITTED a concurrent submission for the same
// product waits at the lock and recomputes over the committed reviews. The
// (product_id, user_id) unique index backstops the duplicate check.
func (h *ReviewHandler) AddReview(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Rating  float64 `json:"rating"`
		Comment string  `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := productForUpdate(tx).First(&product, productID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("product_id = ? AND user_id = ?", product.ID, user.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadyReviewed
		}

		review := models.Review{
			ProductID: product.ID,
			UserID:    user.ID,
			Name:      user.Name,
			Rating:    req.Rating,
			Comment:   req.Comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			// The unique index is the backstop for a concurrent duplicate.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyReviewed
			}
			return err
		}

		var agg struct {
			Num    int64
			Rating float64
		}
		if err := tx.Model(&models.Review{}).
			Select("COUNT(*) AS num, AVG(rating) AS rating").
			Where("product_id = ?", product.ID).
			Scan(&agg).Error; err != nil {
			return err
		}

		return tx.Model(&product).Updates(map[string]any{
			"num_reviews": agg.Num,
			"rating":      agg.Rating,
		}).Error
	})

	switch {
	case txErr == nil:
	case errors.Is(txErr, errAlreadyReviewed):
		return echo.NewHTTPError(http.StatusBadRequest, "product already reviewed")
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	default:
		logging.FromContext(c.Request().Context()).Error("add review failed",
			"product_id", productID, "user_id", user.ID, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicProductEvents, fmt.Sprint(productID), map[string]any{
		"type":       "review_added",
		"product_id": productID,
		"user_id":    user.ID,
		"rating":     req.Rating,
	})

	return c.JSON(http.StatusCreated, echo.Map{"message": "review added"})
}

var errAlreadyReviewed = errors.New("already reviewed")

// productForUpdate locks the product row for the rest of the transaction.
// sqlite has no FOR UPDATE; its single-writer transaction lock already
// serializes the read-check-write there.
func productForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
