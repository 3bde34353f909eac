package middleware

import (
	"github.com/google/uuid"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = logger.RequestIDKey

// RequestID tags the request with an id and attaches a logger carrying it
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Response().Header().Set(RequestIDKey, requestID)
		logger.Attach(c, logger.GetLogger().With(zap.String("request_id", requestID)))
		return next(c)
	}
}
