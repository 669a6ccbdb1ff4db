package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/logging"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
)

// Pricing policy applied at order creation. Prices always come from the
// product store, never from the request.
const (
	freeShippingThreshold = 100
	shippingFlatRate      = 10
	taxRate               = 0.15
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

type createOrderRequest struct {
	Items []struct {
		ProductID uint `json:"product_id"`
		Qty       uint `json:"qty"`
	} `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

// CreateOrder snapshots authoritative product prices into the line items
// and computes the price breakdown server-side.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order.create")

	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no order items")
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		var itemsPrice float64

		for _, it := range req.Items {
			if it.Qty == 0 {
				return fmt.Errorf("%w: quantity must be > 0", errOrderValidation)
			}

			var product models.Product
			if err := tx.First(&product, it.ProductID).Error; err != nil {
				return err
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Image:     product.Image,
				Qty:       it.Qty,
				Price:     product.Price,
			})
			itemsPrice += product.Price * float64(it.Qty)
		}

		itemsPrice = roundCents(itemsPrice)
		shippingPrice := float64(shippingFlatRate)
		if itemsPrice > freeShippingThreshold {
			shippingPrice = 0
		}
		taxPrice := roundCents(itemsPrice * taxRate)

		order = models.Order{
			UserID:        user.ID,
			Items:         items,
			Shipping:      req.ShippingAddress,
			PaymentMethod: req.PaymentMethod,
			ItemsPrice:    itemsPrice,
			ShippingPrice: shippingPrice,
			TaxPrice:      taxPrice,
			TotalPrice:    roundCents(itemsPrice + shippingPrice + taxPrice),
		}
		return tx.Create(&order).Error
	})

	switch {
	case txErr == nil:
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(txErr, errOrderValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order items")
	default:
		l.Error("create order failed", "user_id", user.ID, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  user.ID,
		"total":    order.TotalPrice,
	})

	l.Info("order created", "order_id", order.ID, "user_id", user.ID)
	return c.JSON(http.StatusCreated, order)
}

// GetOrder returns one order to its owner or to an admin.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	order, httpErr := h.findOrder(c)
	if httpErr != nil {
		return httpErr
	}

	if order.UserID != user.ID && !user.Role.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

// MarkPaid records the payment confirmation. The flag and timestamp are set
// unconditionally; a repeat call overwrites the timestamp.
func (h *OrderHandler) MarkPaid(c echo.Context) error {
	var req struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		UpdateTime string `json:"update_time"`
		Payer      struct {
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, httpErr := h.findOrder(c)
	if httpErr != nil {
		return httpErr
	}

	order.IsPaid = true
	order.PaidAt = time.Now().Unix()
	order.Payment = models.PaymentResult{
		PaymentID:    req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.Payer.EmailAddress,
	}

	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_paid",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) MarkSent(c echo.Context) error {
	order, httpErr := h.findOrder(c)
	if httpErr != nil {
		return httpErr
	}

	order.IsSent = true
	order.SentAt = time.Now().Unix()

	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_sent",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) MarkDelivered(c echo.Context) error {
	order, httpErr := h.findOrder(c)
	if httpErr != nil {
		return httpErr
	}

	order.IsDelivered = true
	order.DeliveredAt = time.Now().Unix()

	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_delivered",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) findOrder(c echo.Context) (*models.Order, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &order, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

var errOrderValidation = errors.New("order validation")
