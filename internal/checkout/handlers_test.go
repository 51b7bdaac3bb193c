package checkout_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storefront-eng/checkout-api/internal/cart"
	"github.com/storefront-eng/checkout-api/internal/checkout"
	"github.com/storefront-eng/checkout-api/internal/customer"
	"github.com/storefront-eng/checkout-api/internal/inventory"
	"github.com/storefront-eng/checkout-api/internal/payment"
)

func doCheckout(t *testing.T, f *fixture, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := &checkout.Handler{Svc: f.svc, Validate: validator.New()}
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Finalize(rec, req)
	return rec
}

func checkoutBody(f *fixture) string {
	return `{"cartId":"` + f.cartID.String() + `","customerId":"` + f.custID.String() + `"}`
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCheckoutEndpointCompletes(t *testing.T) {
	f := newFixture(t)

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data checkout.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Data.Success)
	require.Equal(t, "checkout completed", body.Data.Message)
}

func TestCheckoutEndpointRejectsBadJSON(t *testing.T) {
	f := newFixture(t)
	rec := doCheckout(t, f, `{"cartId":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutEndpointValidatesIDs(t *testing.T) {
	f := newFixture(t)
	rec := doCheckout(t, f, `{"cartId":"nope","customerId":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
}

func TestCheckoutEndpointOutOfStock(t *testing.T) {
	f := newFixture(t)
	blocked := f.carts.cart.Items[1].ProductID
	f.inventory.availability = inventory.Availability{
		Available:      false,
		UnavailableIDs: []uuid.UUID{blocked},
	}

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "OUT_OF_STOCK", errorCode(t, rec))
	require.Contains(t, rec.Body.String(), blocked.String())
}

func TestCheckoutEndpointPaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.payments.auth = payment.Authorization{Authorized: false}

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "PAYMENT_DECLINED", errorCode(t, rec))
}

func TestCheckoutEndpointStockUpdateFailed(t *testing.T) {
	f := newFixture(t)
	f.inventory.decResult = inventory.DecrementResult{Success: false}

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "STOCK_UPDATE_FAILED", errorCode(t, rec))
}

func TestCheckoutEndpointUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	f.customers.err = customer.ErrNotFound

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestCheckoutEndpointClosedCart(t *testing.T) {
	f := newFixture(t)
	f.carts.cart.Status = cart.StatusCheckedOut

	rec := doCheckout(t, f, checkoutBody(f))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	f := newFixture(t)
	h := &checkout.Handler{Svc: f.svc, Validate: validator.New()}

	req := httptest.NewRequest(http.MethodPost, "/checkout/quote", strings.NewReader(checkoutBody(f)))
	rec := httptest.NewRecorder()
	h.Quote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			ProductTotal string `json:"productTotal"`
			Freight      string `json:"freight"`
			Total        string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "500", body.Data.ProductTotal)
	require.Equal(t, "12", body.Data.Freight)
	require.Equal(t, "512", body.Data.Total)
}
