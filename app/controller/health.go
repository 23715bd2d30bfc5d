package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type HealthController struct {
	broker Checker
	logger logrus.FieldLogger
}

// NewHealthController constructs the HTTP health controller.
func NewHealthController(broker Checker, logger logrus.FieldLogger) *HealthController {
	return &HealthController{broker: broker, logger: logger}
}

// Health reports ok while the broker answers.
func (c *HealthController) Health(ctx echo.Context) error {
	if err := c.broker(ctx.Request().Context()); err != nil {
		c.logger.WithError(err).Warn("Health check failed")
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
