package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storefront-eng/checkout-api/internal/common"
)

// Handler wires cart operations to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createPayload struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
}

type addItemPayload struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
	ProductID  string `json:"productId" validate:"required,uuid"`
	Qty        int64  `json:"qty" validate:"required,gt=0"`
}

// Create opens an empty cart for a customer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}
	customerID, _ := uuid.Parse(payload.CustomerID)
	crt, err := h.Svc.Create(r.Context(), customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, crt)
}

// Get returns cart contents scoped to the owning customer.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	cartID, ok := h.pathUUID(w, r, "cartID")
	if !ok {
		return
	}
	customerID, ok := h.queryCustomer(w, r)
	if !ok {
		return
	}
	crt, err := h.Svc.ByIDAndCustomer(r.Context(), cartID, customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, crt)
}

// AddItem inserts or increments a cart line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	cartID, ok := h.pathUUID(w, r, "cartID")
	if !ok {
		return
	}
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}
	customerID, _ := uuid.Parse(payload.CustomerID)
	productID, _ := uuid.Parse(payload.ProductID)
	if err := h.Svc.AddItem(r.Context(), cartID, customerID, productID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem deletes the cart line for a product.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	cartID, ok := h.pathUUID(w, r, "cartID")
	if !ok {
		return
	}
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}
	customerID, ok := h.queryCustomer(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), cartID, customerID, productID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) queryCustomer(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("customerId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "customerId query parameter is required", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	case errors.Is(err, ErrClosed):
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "cart already checked out", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unexpected error", nil)
	}
}
