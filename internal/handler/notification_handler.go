package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/farmmarket-backend/internal/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID            uint64  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	TransactionID *uint64 `json:"transactionId,omitempty"`
	ProductID     *uint64 `json:"productId,omitempty"`
	Read          bool    `json:"read"`
	CreatedAt     string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Body:          n.Body,
		TransactionID: n.TransactionID,
		ProductID:     n.ProductID,
		Read:          n.ReadAt != nil,
		CreatedAt:     n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	s := appmw.Session(c)
	if s == nil {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing session"))
	}
	unreadOnly := c.QueryParam("unread") == "1" || c.QueryParam("unread") == "true"
	limit := 20
	if lStr := c.QueryParam("limit"); lStr != "" {
		if lParsed, err := strconv.Atoi(lStr); err == nil && lParsed > 0 {
			limit = lParsed
		}
	}
	list, unreadCount, err := h.svc.List(c.Request().Context(), s.UserID(), unreadOnly, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch notifications"))
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":       resp,
		"unreadCount": unreadCount,
	})
}

type MarkReadRequest struct {
	IDs []uint64 `json:"ids"`
}

// MarkRead accepts an optional {"ids": [...]} body; without ids every unread notification is marked.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	s := appmw.Session(c)
	if s == nil {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing session"))
	}
	var req MarkReadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("validation_error", "invalid request body"))
	}
	n, err := h.svc.MarkRead(c.Request().Context(), s.UserID(), req.IDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to mark read"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "marked": n})
}
