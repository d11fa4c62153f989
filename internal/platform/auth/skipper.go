package auth

import (
	"github.com/labstack/echo/v4"
)

// publicRoutes lists routes that bypass session checks and clinic
// resolution. Entries are either a bare path (any method) or "METHOD path".
var publicRoutes = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/metrics":              true,
	"POST /api/v1/session": true,
}

// Skipper returns true for requests that must work without a session: health
// checks, metrics and the login endpoint itself.
func Skipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

// IsPublicRoute reports whether method+path is reachable without a session.
func IsPublicRoute(method, path string) bool {
	return publicRoutes[path] || publicRoutes[method+" "+path]
}
