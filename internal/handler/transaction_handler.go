package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/farmmarket-backend/internal/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	svc service.TransactionService
	log *zap.Logger
}

func NewTransactionHandler(svc service.TransactionService, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, log: log}
}

type PurchaseRequest struct {
	ProductID         model.FlexUint64 `json:"productId"`
	QuantityPurchased model.FlexFloat  `json:"quantityPurchased"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type TransactionUserResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TransactionProductResponse struct {
	ID             uint64  `json:"id"`
	ProductName    string  `json:"productName"`
	PricePerUnit   float64 `json:"pricePerUnit"`
	FarmerID       uint64  `json:"farmerId"`
	FarmerUsername string  `json:"farmerUsername"`
}

type TransactionResponse struct {
	ID                  uint64                      `json:"id"`
	BuyerID             uint64                      `json:"buyerId"`
	ProductID           uint64                      `json:"productId"`
	ProductNameSnapshot string                      `json:"productNameSnapshot"`
	PriceSnapshot       float64                     `json:"priceSnapshot"`
	QuantityPurchased   float64                     `json:"quantityPurchased"`
	TotalPrice          float64                     `json:"totalPrice"`
	TransactionDate     string                      `json:"transactionDate"`
	Status              string                      `json:"status"`
	Buyer               *TransactionUserResponse    `json:"buyer,omitempty"`
	Product             *TransactionProductResponse `json:"product,omitempty"`
}

type PurchaseResponse struct {
	Message        string              `json:"message"`
	Transaction    TransactionResponse `json:"transaction"`
	RemainingStock float64             `json:"remainingStock"`
}

func toTransactionResponse(t *model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                  t.ID,
		BuyerID:             t.BuyerID,
		ProductID:           t.ProductID,
		ProductNameSnapshot: t.ProductNameSnapshot,
		PriceSnapshot:       t.PriceSnapshot,
		QuantityPurchased:   t.QuantityPurchased,
		TotalPrice:          t.TotalPrice,
		TransactionDate:     t.TransactionDate.UTC().Format(time.RFC3339),
		Status:              string(t.Status),
	}
}

func (h *TransactionHandler) Purchase(c echo.Context) error {
	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	res, err := h.svc.Purchase(c.Request().Context(), appmw.Session(c), req.ProductID.Uint64(), req.QuantityPurchased.Float64())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, PurchaseResponse{
		Message:        "Transaction successful",
		Transaction:    toTransactionResponse(res.Transaction),
		RemainingStock: res.RemainingStock,
	})
}

func (h *TransactionHandler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), appmw.Session(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := make([]TransactionResponse, 0, len(list))
	for i := range list {
		r := toTransactionResponse(&list[i].Transaction)
		if b := list[i].Buyer; b != nil {
			r.Buyer = &TransactionUserResponse{ID: b.ID, Username: b.Username, Email: b.Email}
		}
		if p := list[i].Product; p != nil {
			r.Product = &TransactionProductResponse{
				ID:             p.ID,
				ProductName:    p.ProductName,
				PricePerUnit:   p.PricePerUnit,
				FarmerID:       p.FarmerID,
				FarmerUsername: p.FarmerUsername,
			}
		}
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TransactionHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid transaction id"))
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	t, err := h.svc.SetStatus(c.Request().Context(), appmw.Session(c), id, model.TransactionStatus(req.Status))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toTransactionResponse(t))
}
