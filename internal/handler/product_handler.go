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

type ProductHandler struct {
	svc service.ProductService
	log *zap.Logger
}

func NewProductHandler(svc service.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

type ProductResponse struct {
	ID             uint64  `json:"id"`
	FarmerID       uint64  `json:"farmerId"`
	FarmerUsername string  `json:"farmerUsername,omitempty"`
	ProductName    string  `json:"productName"`
	Quantity       float64 `json:"quantity"`
	PricePerUnit   float64 `json:"pricePerUnit"`
	Description    string  `json:"description"`
	DateListed     string  `json:"dateListed"`
	IsAvailable    bool    `json:"isAvailable"`
}

type CreateProductRequest struct {
	ProductName  string          `json:"productName"`
	Quantity     model.FlexFloat `json:"quantity"`
	PricePerUnit model.FlexFloat `json:"pricePerUnit"`
	Description  string          `json:"description"`
}

type UpdateProductRequest struct {
	ProductName  *string          `json:"productName"`
	PricePerUnit *model.FlexFloat `json:"pricePerUnit"`
	Description  *string          `json:"description"`
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		FarmerID:     p.FarmerID,
		ProductName:  p.ProductName,
		Quantity:     p.Quantity,
		PricePerUnit: p.PricePerUnit,
		Description:  p.Description,
		DateListed:   p.DateListed.UTC().Format(time.RFC3339),
		IsAvailable:  p.IsAvailable,
	}
}

func (h *ProductHandler) List(c echo.Context) error {
	list, err := h.svc.ListAvailable(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := make([]ProductResponse, 0, len(list))
	for i := range list {
		r := toProductResponse(&list[i].Product)
		r.FarmerUsername = list[i].FarmerUsername
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.svc.Create(c.Request().Context(), appmw.Session(c), service.CreateProductInput{
		ProductName:  req.ProductName,
		Quantity:     req.Quantity.Float64(),
		PricePerUnit: req.PricePerUnit.Float64(),
		Description:  req.Description,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) ListMine(c echo.Context) error {
	list, err := h.svc.ListMine(c.Request().Context(), appmw.Session(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := make([]ProductResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toProductResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid product id"))
	}
	var req UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	in := service.UpdateProductInput{ProductName: req.ProductName, Description: req.Description}
	if req.PricePerUnit != nil {
		v := req.PricePerUnit.Float64()
		in.PricePerUnit = &v
	}
	p, err := h.svc.Update(c.Request().Context(), appmw.Session(c), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "Product not found or unauthorized"))
	}
	if err := h.svc.Delete(c.Request().Context(), appmw.Session(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Product deleted"})
}
