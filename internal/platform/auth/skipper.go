package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are infrastructure endpoints reachable without credentials.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/metrics":      true,
	"/openapi.json": true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath reports whether path is served without credentials.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
