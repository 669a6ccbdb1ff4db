package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/proshop-dev/proshop-backend/internal/logging"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
)

// publish writes a domain event. Delivery failures are logged and never
// fail the request; the storage write is the durability boundary.
func publish(c echo.Context, p mykafka.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed",
			"topic", topic, "error", err)
	}
}
