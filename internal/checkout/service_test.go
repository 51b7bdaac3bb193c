package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/storefront-eng/checkout-api/internal/cart"
	"github.com/storefront-eng/checkout-api/internal/checkout"
	"github.com/storefront-eng/checkout-api/internal/customer"
	"github.com/storefront-eng/checkout-api/internal/inventory"
	"github.com/storefront-eng/checkout-api/internal/payment"
	"github.com/storefront-eng/checkout-api/internal/pricing"
)

type fakeCustomers struct {
	customer customer.Customer
	err      error
	calls    int
}

func (f *fakeCustomers) ByID(context.Context, uuid.UUID) (customer.Customer, error) {
	f.calls++
	return f.customer, f.err
}

type fakeCarts struct {
	cart  cart.Cart
	err   error
	calls int
}

func (f *fakeCarts) ByIDAndCustomer(context.Context, uuid.UUID, uuid.UUID) (cart.Cart, error) {
	f.calls++
	return f.cart, f.err
}

type fakeInventory struct {
	availability inventory.Availability
	availErr     error
	decResult    inventory.DecrementResult
	decErr       error

	availCalls int
	decCalls   int
	decIDs     []uuid.UUID
	decQtys    []int64
}

func (f *fakeInventory) CheckAvailability(_ context.Context, _ []uuid.UUID, _ []int64) (inventory.Availability, error) {
	f.availCalls++
	return f.availability, f.availErr
}

func (f *fakeInventory) Decrement(_ context.Context, ids []uuid.UUID, qtys []int64) (inventory.DecrementResult, error) {
	f.decCalls++
	f.decIDs = ids
	f.decQtys = qtys
	return f.decResult, f.decErr
}

type fakePayments struct {
	auth      payment.Authorization
	authErr   error
	cancelErr error

	authCalls    int
	authAmount   decimal.Decimal
	cancelCalls  int
	cancelledTxn uuid.UUID
}

func (f *fakePayments) Authorize(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (payment.Authorization, error) {
	f.authCalls++
	f.authAmount = amount
	return f.auth, f.authErr
}

func (f *fakePayments) Cancel(_ context.Context, _ uuid.UUID, txn uuid.UUID) error {
	f.cancelCalls++
	f.cancelledTxn = txn
	return f.cancelErr
}

type fixture struct {
	svc       *checkout.Service
	customers *fakeCustomers
	carts     *fakeCarts
	inventory *fakeInventory
	payments  *fakePayments
	cartID    uuid.UUID
	custID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	custID := uuid.New()
	cartID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	customers := &fakeCustomers{customer: customer.Customer{
		ID:   custID,
		Name: "Ada",
		Tier: pricing.TierBase,
	}}
	carts := &fakeCarts{cart: cart.Cart{
		ID:         cartID,
		CustomerID: custID,
		Status:     cart.StatusOpen,
		Items: []cart.Item{
			{ProductID: productA, Name: "keyboard", Qty: 2, UnitPrice: decimal.NewFromInt(100), UnitWeight: decimal.NewFromInt(1)},
			{ProductID: productB, Name: "monitor", Qty: 1, UnitPrice: decimal.NewFromInt(300), UnitWeight: decimal.NewFromInt(4)},
		},
	}}
	inv := &fakeInventory{
		availability: inventory.Availability{Available: true},
		decResult:    inventory.DecrementResult{Success: true},
	}
	pay := &fakePayments{auth: payment.Authorization{Authorized: true, TransactionID: uuid.New()}}

	return &fixture{
		svc: &checkout.Service{
			Customers: customers,
			Carts:     carts,
			Inventory: inv,
			Payments:  pay,
			Logger:    zerolog.Nop(),
		},
		customers: customers,
		carts:     carts,
		inventory: inv,
		payments:  pay,
		cartID:    cartID,
		custID:    custID,
	}
}

func TestFinalizeCompletes(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEqual(t, uuid.Nil, result.OrderID)
	require.Equal(t, f.payments.auth.TransactionID, result.TransactionID)

	require.Equal(t, 1, f.inventory.availCalls)
	require.Equal(t, 1, f.payments.authCalls)
	require.Equal(t, 1, f.inventory.decCalls)
	require.Zero(t, f.payments.cancelCalls)

	// 2x100 + 1x300 = 500 product total, 6kg freight band is 2/kg.
	require.True(t, f.payments.authAmount.Equal(decimal.NewFromInt(512)),
		"charged %s", f.payments.authAmount)
	require.Len(t, f.inventory.decIDs, 2)
	require.Equal(t, []int64{2, 1}, f.inventory.decQtys)
}

func TestFinalizeOutOfStockStopsBeforePayment(t *testing.T) {
	f := newFixture(t)
	blocked := f.carts.cart.Items[0].ProductID
	f.inventory.availability = inventory.Availability{
		Available:      false,
		UnavailableIDs: []uuid.UUID{blocked},
	}

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	var oos *checkout.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, []uuid.UUID{blocked}, oos.ProductIDs)

	require.Zero(t, f.payments.authCalls)
	require.Zero(t, f.inventory.decCalls)
	require.Zero(t, f.payments.cancelCalls)
}

func TestFinalizeDeclinedStopsBeforeDecrement(t *testing.T) {
	f := newFixture(t)
	f.payments.auth = payment.Authorization{Authorized: false}

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, checkout.ErrPaymentDeclined)

	require.Equal(t, 1, f.payments.authCalls)
	require.Zero(t, f.inventory.decCalls)
	require.Zero(t, f.payments.cancelCalls)
}

func TestFinalizeCompensatesOnDecrementFailure(t *testing.T) {
	f := newFixture(t)
	f.inventory.decResult = inventory.DecrementResult{Success: false}

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, checkout.ErrStockUpdate)

	require.Equal(t, 1, f.payments.cancelCalls)
	require.Equal(t, f.payments.auth.TransactionID, f.payments.cancelledTxn)
}

func TestFinalizeCompensatesOnDecrementError(t *testing.T) {
	f := newFixture(t)
	f.inventory.decErr = errors.New("redis gone")

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, checkout.ErrStockUpdate)
	require.Equal(t, 1, f.payments.cancelCalls)
}

func TestFinalizeCancelFailureStillReportsStockUpdate(t *testing.T) {
	f := newFixture(t)
	f.inventory.decResult = inventory.DecrementResult{Success: false}
	f.payments.cancelErr = errors.New("gateway down")

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, checkout.ErrStockUpdate)
	require.Equal(t, 1, f.payments.cancelCalls)
}

func TestFinalizeRejectsClosedCart(t *testing.T) {
	f := newFixture(t)
	f.carts.cart.Status = cart.StatusCheckedOut

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, cart.ErrClosed)
	require.Zero(t, f.inventory.availCalls)
	require.Zero(t, f.payments.authCalls)
}

func TestFinalizeRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.carts.cart.Items = nil

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, cart.ErrInvalidInput)
	require.Zero(t, f.inventory.availCalls)
}

func TestFinalizeUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	f.customers.err = customer.ErrNotFound

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, customer.ErrNotFound)
	require.Zero(t, f.carts.calls)
}

func TestFinalizeUnknownCart(t *testing.T) {
	f := newFixture(t)
	f.carts.err = cart.ErrNotFound

	_, err := f.svc.Finalize(context.Background(), f.cartID, f.custID)
	require.ErrorIs(t, err, cart.ErrNotFound)
	require.Zero(t, f.inventory.availCalls)
}

func TestFinalizeNotConfigured(t *testing.T) {
	svc := &checkout.Service{}
	_, err := svc.Finalize(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestQuoteDoesNotTouchCollaborators(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(context.Background(), f.cartID, f.custID)
	require.NoError(t, err)
	require.True(t, quote.Total.Equal(decimal.NewFromInt(512)), "total %s", quote.Total)
	require.True(t, quote.Freight.Equal(decimal.NewFromInt(12)))

	require.Zero(t, f.inventory.availCalls)
	require.Zero(t, f.payments.authCalls)
	require.Zero(t, f.inventory.decCalls)
}
