package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/logging"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
	"github.com/proshop-dev/proshop-backend/internal/service/search"
	"github.com/proshop-dev/proshop-backend/internal/util"
)

const topProductsCount = 3

type ProductHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
	ES       *elasticsearch.Client
}

// GetProducts lists the catalog. With a keyword it filters by
// case-insensitive substring on name; when the keyword matches nothing the
// full unfiltered catalog is returned instead, flagged by a message so
// callers can tell the fallback from a genuine result.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		// Echo the page actually served, not the raw query value.
		page = 1
	}
	offset, limit := util.Calculate(page, util.PageSize)

	keyword := c.QueryParam("keyword")
	filtered := func() *gorm.DB {
		q := h.DB.Model(&models.Product{})
		if keyword != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(keyword)+"%")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if keyword != "" && total == 0 {
		// Fallback: no match, serve the unfiltered catalog instead.
		if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		var products []models.Product
		if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		return c.JSON(http.StatusOK, echo.Map{
			"message":  "no product found for the keyword, so we return all result",
			"products": products,
			"page":     page,
			"pages":    pageCount(total, limit),
		})
	}

	var products []models.Product
	if err := filtered().Order("id ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products": products,
		"page":     page,
		"pages":    pageCount(total, limit),
	})
}

func (h *ProductHandler) GetTopProducts(c echo.Context) error {
	var products []models.Product
	if err := h.DB.Order("rating DESC").Limit(topProductsCount).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.Preload("Reviews").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct seeds a placeholder owned by the creating admin; the
// client follows up with an update to fill in real values.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	product := models.Product{
		UserID:       user.ID,
		Name:         "Sample product",
		Brand:        "Sample brand",
		Category:     "Sample category",
		Description:  "Sample description",
		Image:        "/images/sample.jpg",
		Price:        0,
		CountInStock: 0,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.syncIndex(c, &product)
	publish(c, h.Producer, mykafka.TopicProductEvents, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"user_id":    user.ID,
	})

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Name         string  `json:"name"`
		Brand        string  `json:"brand"`
		Category     string  `json:"category"`
		Description  string  `json:"description"`
		Image        string  `json:"image"`
		Price        float64 `json:"price"`
		CountInStock uint    `json:"count_in_stock"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	product.Name = req.Name
	product.Brand = req.Brand
	product.Category = req.Category
	product.Description = req.Description
	product.Image = req.Image
	product.Price = req.Price
	product.CountInStock = req.CountInStock

	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.syncIndex(c, &product)
	publish(c, h.Producer, mykafka.TopicProductEvents, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_updated",
		"product_id": product.ID,
	})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctx, h.ES, search.Index, product.ID); err != nil {
			logging.FromContext(c.Request().Context()).Error("search index delete failed",
				"product_id", product.ID, "error", err)
		}
	}
	publish(c, h.Producer, mykafka.TopicProductEvents, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_deleted",
		"product_id": product.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// syncIndex mirrors a product into the search index, best effort.
func (h *ProductHandler) syncIndex(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := search.IndexProduct(ctx, h.ES, search.Index, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("search index sync failed",
			"product_id", p.ID, "error", err)
	}
}

func pageCount(total int64, limit int) int64 {
	return (total + int64(limit) - 1) / int64(limit)
}
