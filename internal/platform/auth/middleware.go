package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SessionConfig wires SessionMiddleware.
type SessionConfig struct {
	Tokens  *TokenIssuer
	Store   SessionStore
	Skipper func(c echo.Context) bool
	// AllowAnonymousAdmin treats requests without an Authorization header as
	// the admin. Development only.
	AllowAnonymousAdmin bool
}

// devSession is the session attached to anonymous requests in development.
var devSession = Session{
	ID:        "dev",
	StaffID:   uuid.Nil,
	Name:      "Developer",
	Email:     "dev@localhost",
	Role:      RoleAdmin,
	ExpiresAt: time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
}

// SessionMiddleware resolves the bearer token to a stored session and puts
// it in the request context. Tokens whose session was deleted (logout) or
// expired are rejected even if the signature is still valid.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if cfg.AllowAnonymousAdmin {
					s := devSession
					return next(withSession(c, &s))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			tokenStr, ok := bearerToken(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			sid, err := cfg.Tokens.Parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			s, err := cfg.Store.Get(c.Request().Context(), sid)
			if errors.Is(err, ErrSessionNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired or signed out")
			}
			if err != nil {
				zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("session lookup failed")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
			}

			return next(withSession(c, s))
		}
	}
}

func withSession(c echo.Context, s *Session) echo.Context {
	c.Set("role", string(s.Role))
	c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))
	return c
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
