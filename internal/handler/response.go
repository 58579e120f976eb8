package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/reqctx"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// writeError maps a service error onto a status code. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		status, code = http.StatusBadRequest, "insufficient_stock"
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrDuplicateUser):
		status, code = http.StatusBadRequest, "duplicate_user"
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrNotVerified):
		status, code = http.StatusForbidden, "not_verified"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	default:
		log.Error("request failed",
			zap.String("request_id", reqctx.RequestID(c.Request().Context())),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "Server error"))
	}
	return c.JSON(status, NewErrorResponse(code, err.Error()))
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

type UserResponse struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
