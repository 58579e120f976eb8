package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/farmmarket-backend/internal/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"go.uber.org/zap"
)

type VerificationHandler struct {
	svc service.VerificationService
	log *zap.Logger
}

func NewVerificationHandler(svc service.VerificationService, log *zap.Logger) *VerificationHandler {
	return &VerificationHandler{svc: svc, log: log}
}

type UserVerificationResponse struct {
	UserInfo         UserResponse `json:"userInfo"`
	VerifiedStatus   bool         `json:"verifiedStatus"`
	VerificationDate *string      `json:"verificationDate"`
	VerificationID   *uint64      `json:"verificationId"`
}

type VerificationResponse struct {
	ID               uint64  `json:"id"`
	UserID           uint64  `json:"userId"`
	VerifiedStatus   bool    `json:"verifiedStatus"`
	VerificationDate *string `json:"verificationDate"`
	VerifiedBy       *uint64 `json:"verifiedBy"`
}

type SetVerificationRequest struct {
	Status *bool `json:"status"`
}

func toVerificationResponse(v *model.Verification) VerificationResponse {
	return VerificationResponse{
		ID:               v.ID,
		UserID:           v.UserID,
		VerifiedStatus:   v.VerifiedStatus,
		VerificationDate: formatTime(v.VerificationDate),
		VerifiedBy:       v.VerifiedBy,
	}
}

func (h *VerificationHandler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), appmw.Session(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := make([]UserVerificationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, UserVerificationResponse{
			UserInfo:         toUserResponse(&list[i].User),
			VerifiedStatus:   list[i].VerifiedStatus,
			VerificationDate: formatTime(list[i].VerificationDate),
			VerificationID:   list[i].VerificationID,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *VerificationHandler) SetStatus(c echo.Context) error {
	userID, ok := parseID(c, "userId")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid user id"))
	}
	var req SetVerificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.Status == nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "status must be a boolean"))
	}
	v, err := h.svc.SetStatus(c.Request().Context(), appmw.Session(c), userID, *req.Status)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toVerificationResponse(v))
}
