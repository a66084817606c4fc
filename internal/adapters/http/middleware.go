package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/antinea2359/app-tarot/internal/app"
)

const (
	headerRequestID = "X-Request-Id"
	sessionCookie   = "oraculum_session"
	sessionKey      = "session"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set("request_id", id)
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("request",
				"request_id", c.Get("request_id"),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

// SessionMiddleware attaches the caller's session. The cookie is reissued on
// every request so its lifetime slides along with the registry's expiry.
func SessionMiddleware(reg *app.Registry, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if ck, err := c.Cookie(sessionCookie); err == nil {
				id = ck.Value
			}
			s, _ := reg.GetOrCreate(id)
			ck := &http.Cookie{
				Name:     sessionCookie,
				Value:    s.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   c.Scheme() == "https",
			}
			if ttl > 0 {
				ck.MaxAge = int(ttl.Seconds())
			}
			c.SetCookie(ck)
			c.Set(sessionKey, s)
			return next(c)
		}
	}
}

func sessionFrom(c echo.Context) *app.Session {
	s, _ := c.Get(sessionKey).(*app.Session)
	return s
}
