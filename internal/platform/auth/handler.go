package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Authenticator verifies the credentials of one portal's staff.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, email, password string) (*Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	return f(ctx, email, password)
}

// AdminAuthenticator checks the single configured admin account.
type AdminAuthenticator struct {
	Email        string
	PasswordHash string
}

func (a AdminAuthenticator) Authenticate(_ context.Context, email, password string) (*Principal, error) {
	if a.Email == "" || !strings.EqualFold(strings.TrimSpace(email), a.Email) {
		return nil, apperr.ErrUnauthorized
	}
	if !CheckPassword(a.PasswordHash, password) {
		return nil, apperr.ErrUnauthorized
	}
	return &Principal{StaffID: uuid.Nil, Name: "Administrator", Email: a.Email, Role: RoleAdmin}, nil
}

// Handler serves login, current-session and logout.
type Handler struct {
	authenticators map[Role]Authenticator
	store          SessionStore
	tokens         *TokenIssuer
	ttl            time.Duration
	now            func() time.Time
}

func NewHandler(store SessionStore, tokens *TokenIssuer, ttl time.Duration, authenticators map[Role]Authenticator) *Handler {
	return &Handler{
		authenticators: authenticators,
		store:          store,
		tokens:         tokens,
		ttl:            ttl,
		now:            time.Now,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/session", h.Login)
	api.GET("/session", h.Current)
	api.DELETE("/session", h.Logout)
}

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	role, ok := ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be admin, doctor or nurse")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	authn, ok := h.authenticators[role]
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	p, err := authn.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if apperr.StatusCode(err) == http.StatusServiceUnavailable {
			return apperr.HTTP(err)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	s := NewSession(p, h.now(), h.ttl)
	if err := h.store.Save(c.Request().Context(), s); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable").SetInternal(err)
	}
	token, err := h.tokens.Issue(s)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, loginResponse{Token: token, Session: s})
}

func (h *Handler) Current(c echo.Context) error {
	s := SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Logout(c echo.Context) error {
	s := SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	if err := h.store.Delete(c.Request().Context(), s.ID); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}
