package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storefront-eng/checkout-api/internal/cart"
	"github.com/storefront-eng/checkout-api/internal/common"
	"github.com/storefront-eng/checkout-api/internal/customer"
	"github.com/storefront-eng/checkout-api/internal/lock"
	"github.com/storefront-eng/checkout-api/internal/pricing"
)

// Handler wires the checkout operations to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutPayload struct {
	CartID     string `json:"cartId" validate:"required,uuid"`
	CustomerID string `json:"customerId" validate:"required,uuid"`
}

type quoteResponse struct {
	ProductTotal   string `json:"productTotal"`
	VolumeDiscount string `json:"volumeDiscount"`
	Freight        string `json:"freight"`
	Total          string `json:"total"`
}

// Finalize runs the checkout for a cart.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	cartID, customerID, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.Svc.Finalize(r.Context(), cartID, customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

// Quote prices the cart without committing anything.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	cartID, customerID, ok := h.decode(w, r)
	if !ok {
		return
	}
	quote, err := h.Svc.Quote(r.Context(), cartID, customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quoteResponse{
		ProductTotal:   quote.ProductTotal.String(),
		VolumeDiscount: quote.VolumeDiscount.String(),
		Freight:        quote.Freight.String(),
		Total:          quote.Total.String(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (cartID, customerID uuid.UUID, ok bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return uuid.Nil, uuid.Nil, false
	}
	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return uuid.Nil, uuid.Nil, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
			return uuid.Nil, uuid.Nil, false
		}
	}
	cartID, _ = uuid.Parse(payload.CartID)
	customerID, _ = uuid.Parse(payload.CustomerID)
	return cartID, customerID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var oos *OutOfStockError
	switch {
	case errors.As(err, &oos):
		ids := make([]string, 0, len(oos.ProductIDs))
		for _, id := range oos.ProductIDs {
			ids = append(ids, id.String())
		}
		common.JSONError(w, http.StatusConflict, common.CodeOutOfStock, "items out of stock", map[string]any{"productIds": ids})
	case errors.Is(err, ErrPaymentDeclined):
		common.JSONError(w, http.StatusConflict, common.CodePaymentDeclined, "payment was not authorized", nil)
	case errors.Is(err, ErrStockUpdate):
		common.JSONError(w, http.StatusConflict, common.CodeStockUpdate, "stock could not be updated, payment was cancelled", nil)
	case errors.Is(err, lock.ErrBusy):
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "checkout already in progress for this cart", nil)
	case errors.Is(err, customer.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "customer not found", nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	case errors.Is(err, cart.ErrClosed):
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "cart already checked out", nil)
	case errors.Is(err, cart.ErrInvalidInput), errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unexpected error", nil)
	}
}
