package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fieldwork/patternstore/internal/profile"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldMethod is the field name for the HTTP method.
	LogFieldMethod = "method"
	// LogFieldPath is the field name for the request path.
	LogFieldPath = "path"
	// LogFieldStatus is the field name for the response status.
	LogFieldStatus = "status"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
)

// NewLogger builds the process logger: human-readable text in dev and demo
// modes, JSON in prod.
func NewLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// RequestLogger logs one structured line per HTTP request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := uuid.New().String()
			c.Set(LogFieldRequestID, requestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "http request",
				slog.String(LogFieldRequestID, requestID),
				slog.String(LogFieldMethod, c.Request().Method),
				slog.String(LogFieldPath, c.Request().URL.Path),
				slog.Int(LogFieldStatus, c.Response().Status),
				slog.Int64(LogFieldDuration, time.Since(start).Milliseconds()))
			return err
		}
	}
}
