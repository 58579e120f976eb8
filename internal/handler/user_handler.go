package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/farmmarket-backend/internal/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/service"
)

type UserHandler struct {
	verification service.VerificationService
}

func NewUserHandler(verification service.VerificationService) *UserHandler {
	return &UserHandler{verification: verification}
}

type MeResponse struct {
	UserResponse
	Verified bool `json:"verified"`
}

// Me returns the caller with their current verification state.
func (h *UserHandler) Me(c echo.Context) error {
	s := appmw.Session(c)
	if s == nil {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing session"))
	}
	resp := MeResponse{UserResponse: toUserResponse(&s.User)}
	if s.User.Role.Transacting() {
		ok, err := h.verification.IsEligible(c.Request().Context(), s.UserID())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch verification"))
		}
		resp.Verified = ok
	} else {
		resp.Verified = true
	}
	return c.JSON(http.StatusOK, resp)
}
