package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoggerMiddleware emits one structured line per request, tagged with the
// request id so a log line can be matched to the client's X-Request-ID.
func LoggerMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		reqID, _ := c.Locals(CtxRequestID).(string)
		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if addr := GetAddress(c); addr != "" {
			fields = append(fields, zap.String("address", addr))
		}
		log.Info("http", fields...)

		return err
	}
}
