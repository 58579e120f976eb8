package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"github.com/shinyyama/farmmarket-backend/internal/session"
)

const sessionKey = "session"

type AuthMiddleware struct {
	auth service.AuthService
}

func NewAuthMiddleware(auth service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func deny(c echo.Context, status int, code, msg string) error {
	var b errorBody
	b.Error.Code = code
	b.Error.Message = msg
	return c.JSON(status, b)
}

// RequireAuth resolves the bearer token into a session for the rest of the request.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return deny(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		s, err := m.auth.Authenticate(c.Request().Context(), tokenStr)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				return deny(c, http.StatusUnauthorized, "unauthorized", "invalid_token")
			}
			return deny(c, http.StatusInternalServerError, "internal_error", "failed to resolve session")
		}
		c.Set(sessionKey, s)
		c.SetRequest(c.Request().WithContext(session.With(c.Request().Context(), s)))
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := Session(c)
			if s == nil {
				return deny(c, http.StatusUnauthorized, "unauthorized", "missing session")
			}
			for _, r := range roles {
				if s.Role() == r {
					return next(c)
				}
			}
			return deny(c, http.StatusForbidden, "forbidden", "Access denied for role "+string(s.Role()))
		}
	}
}

// Session returns the session set by RequireAuth, or nil.
func Session(c echo.Context) *session.Session {
	s, _ := c.Get(sessionKey).(*session.Session)
	return s
}
