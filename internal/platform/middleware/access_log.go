package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/upstac/upstac/internal/platform/auth"
)

// AccessLog emits one structured event per /api/v1 call naming the caller,
// the workflow route touched and the outcome. It only writes to the log
// stream; nothing is persisted.
func AccessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			resource, action, testRequestID := classify(req.Method, path)
			rid, _ := c.Get("request_id").(string)

			logger.Info().
				Str("type", "access").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(req.Context())).
				Strs("user_roles", auth.RolesFromContext(req.Context())).
				Str("resource", resource).
				Str("test_request_id", testRequestID).
				Str("action", action).
				Str("method", req.Method).
				Str("path", path).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Msg("test_request_access")

			return err
		}
	}
}

// classify splits /api/v1/<resource>[/<action>]/<id> into its parts.
func classify(method, path string) (resource, action, id string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	resource = segments[0]

	action = "read"
	if method != http.MethodGet && method != http.MethodHead {
		action = "write"
	}
	for _, s := range segments[1:] {
		switch {
		case s == "assign" || s == "update":
			action = s
		case isUUID(s):
			id = s
		}
	}
	return resource, action, id
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
