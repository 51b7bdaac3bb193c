package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/storefront-eng/checkout-api/internal/cart"
	"github.com/storefront-eng/checkout-api/internal/customer"
	"github.com/storefront-eng/checkout-api/internal/events"
	"github.com/storefront-eng/checkout-api/internal/inventory"
	"github.com/storefront-eng/checkout-api/internal/lock"
	"github.com/storefront-eng/checkout-api/internal/obs"
	"github.com/storefront-eng/checkout-api/internal/payment"
	"github.com/storefront-eng/checkout-api/internal/pricing"
)

// ErrPaymentDeclined is returned when the gateway refuses the charge.
// Stock is never decremented after a declined payment.
var ErrPaymentDeclined = errors.New("payment not authorized")

// ErrStockUpdate is returned when the stock decrement fails after payment
// was authorized. It is always preceded by exactly one compensating
// cancellation attempt.
var ErrStockUpdate = errors.New("stock update failed")

// OutOfStockError carries the product ids that blocked the checkout.
type OutOfStockError struct {
	ProductIDs []uuid.UUID
}

func (e *OutOfStockError) Error() string {
	ids := make([]string, 0, len(e.ProductIDs))
	for _, id := range e.ProductIDs {
		ids = append(ids, id.String())
	}
	return "items out of stock: " + strings.Join(ids, ", ")
}

// CustomerLookup resolves customers. Missing customers surface as
// customer.ErrNotFound.
type CustomerLookup interface {
	ByID(ctx context.Context, id uuid.UUID) (customer.Customer, error)
}

// CartLookup resolves carts scoped to their owner. Absent or foreign carts
// surface as cart.ErrNotFound.
type CartLookup interface {
	ByIDAndCustomer(ctx context.Context, cartID, customerID uuid.UUID) (cart.Cart, error)
}

// InventoryService is the external stock collaborator. Both calls take
// parallel id/quantity slices in cart line order.
type InventoryService interface {
	CheckAvailability(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (inventory.Availability, error)
	Decrement(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (inventory.DecrementResult, error)
}

// PaymentService is the external payment collaborator. Cancel is
// idempotent on the collaborator side.
type PaymentService interface {
	Authorize(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (payment.Authorization, error)
	Cancel(ctx context.Context, customerID uuid.UUID, transactionID uuid.UUID) error
}

// Result is the outcome of a completed checkout.
type Result struct {
	Success       bool      `json:"success"`
	OrderID       uuid.UUID `json:"orderId,omitempty"`
	TransactionID uuid.UUID `json:"transactionId,omitempty"`
	Message       string    `json:"message"`
}

// Service sequences a checkout: resolve customer and cart, check
// availability, price, authorize payment, decrement stock, and compensate
// the payment when the decrement fails. No step is ever retried.
type Service struct {
	Customers CustomerLookup
	Carts     CartLookup
	Inventory InventoryService
	Payments  PaymentService

	// Pool bounds the local state change (order row + cart status) in one
	// transaction. External collaborators are outside it and are
	// compensated explicitly. Optional: nil skips persistence.
	Pool *pgxpool.Pool

	// Locker serializes concurrent checkouts of the same cart. Optional.
	Locker  *lock.Locker
	LockTTL time.Duration

	// CallTimeout bounds each external collaborator call.
	CallTimeout time.Duration

	Events *events.Bus
	Logger zerolog.Logger
}

// Finalize runs the full checkout for the cart on behalf of the customer.
func (s *Service) Finalize(ctx context.Context, cartID, customerID uuid.UUID) (Result, error) {
	if err := s.configured(); err != nil {
		return Result{}, err
	}
	if s.Locker == nil {
		return s.finalize(ctx, cartID, customerID)
	}
	var result Result
	err := s.Locker.TryWithLock(ctx, "checkout:cart:"+cartID.String(), s.LockTTL, func(ctx context.Context) error {
		var err error
		result, err = s.finalize(ctx, cartID, customerID)
		return err
	})
	return result, err
}

func (s *Service) finalize(ctx context.Context, cartID, customerID uuid.UUID) (_ Result, err error) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "Checkout.Finalize")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.id", cartID.String()),
		attribute.String("customer.id", customerID.String()),
	)

	start := time.Now()
	outcome := "error"
	defer func() {
		span.SetAttributes(attribute.String("checkout.result", outcome))
		if obs.CheckoutTotal != nil {
			obs.CheckoutTotal.WithLabelValues(outcome).Inc()
		}
		if obs.CheckoutDuration != nil {
			obs.CheckoutDuration.Observe(obs.DurationMillis(time.Since(start)))
		}
		if outcome != "completed" {
			s.emitFailed(ctx, cartID, outcome)
		}
	}()

	cust, err := s.lookupCustomer(ctx, customerID)
	if err != nil {
		outcome = resultLabel(err)
		return Result{}, err
	}
	crt, err := s.lookupCart(ctx, cartID, cust.ID)
	if err != nil {
		outcome = resultLabel(err)
		return Result{}, err
	}
	if crt.Status != cart.StatusOpen {
		outcome = "conflict"
		return Result{}, cart.ErrClosed
	}
	if len(crt.Items) == 0 {
		outcome = "invalid"
		return Result{}, fmt.Errorf("cart is empty: %w", cart.ErrInvalidInput)
	}

	productIDs, qtys := crt.Lines()

	avail, err := s.checkAvailability(ctx, productIDs, qtys)
	if err != nil {
		return Result{}, err
	}
	if !avail.Available {
		outcome = "out_of_stock"
		return Result{}, &OutOfStockError{ProductIDs: avail.UnavailableIDs}
	}

	total, err := pricing.ComputeTotal(crt.PricingItems(), cust.Tier)
	if err != nil {
		outcome = "invalid"
		return Result{}, fmt.Errorf("price cart: %w", err)
	}
	span.SetAttributes(attribute.String("checkout.total", total.String()))

	auth, err := s.authorize(ctx, cust.ID, total)
	if err != nil {
		return Result{}, err
	}
	if !auth.Authorized {
		outcome = "payment_declined"
		return Result{}, ErrPaymentDeclined
	}

	decremented, err := s.decrement(ctx, productIDs, qtys)
	if err != nil || !decremented.Success {
		// Compensate exactly once before surfacing the failure.
		s.compensate(ctx, cust.ID, auth.TransactionID)
		outcome = "stock_update_failed"
		if err != nil {
			return Result{}, fmt.Errorf("decrement stock: %v: %w", err, ErrStockUpdate)
		}
		return Result{}, ErrStockUpdate
	}

	orderID, err := s.commitOrder(ctx, crt, cust, total, auth.TransactionID)
	if err != nil {
		// The local commit failed after both external effects landed.
		// Free the charge; the stock decrement stands (no undo contract).
		s.compensate(ctx, cust.ID, auth.TransactionID)
		return Result{}, fmt.Errorf("commit order: %w", err)
	}

	outcome = "completed"
	s.emitCompleted(ctx, orderID, crt, cust.ID, total, auth.TransactionID)
	s.Logger.Info().
		Str("cart_id", crt.ID.String()).
		Str("customer_id", cust.ID.String()).
		Str("order_id", orderID.String()).
		Str("transaction_id", auth.TransactionID.String()).
		Str("total", total.String()).
		Msg("checkout completed")

	return Result{
		Success:       true,
		OrderID:       orderID,
		TransactionID: auth.TransactionID,
		Message:       "checkout completed",
	}, nil
}

// Quote prices the cart for the customer without committing anything. No
// inventory or payment call is made.
func (s *Service) Quote(ctx context.Context, cartID, customerID uuid.UUID) (pricing.Quote, error) {
	if s == nil || s.Customers == nil || s.Carts == nil {
		return pricing.Quote{}, errors.New("checkout service not configured")
	}
	cust, err := s.lookupCustomer(ctx, customerID)
	if err != nil {
		return pricing.Quote{}, err
	}
	crt, err := s.lookupCart(ctx, cartID, cust.ID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.ComputeQuote(crt.PricingItems(), cust.Tier)
}

func (s *Service) configured() error {
	if s == nil || s.Customers == nil || s.Carts == nil || s.Inventory == nil || s.Payments == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) lookupCustomer(ctx context.Context, id uuid.UUID) (customer.Customer, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	cust, err := s.Customers.ByID(cctx, id)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("resolve customer: %w", err)
	}
	return cust, nil
}

func (s *Service) lookupCart(ctx context.Context, cartID, customerID uuid.UUID) (cart.Cart, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	crt, err := s.Carts.ByIDAndCustomer(cctx, cartID, customerID)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("resolve cart: %w", err)
	}
	return crt, nil
}

func (s *Service) checkAvailability(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (inventory.Availability, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	avail, err := s.Inventory.CheckAvailability(cctx, productIDs, qtys)
	if err != nil {
		return inventory.Availability{}, fmt.Errorf("check availability: %w", err)
	}
	return avail, nil
}

func (s *Service) authorize(ctx context.Context, customerID uuid.UUID, total decimal.Decimal) (payment.Authorization, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	auth, err := s.Payments.Authorize(cctx, customerID, total)
	label := "ok"
	switch {
	case err != nil:
		label = "error"
	case !auth.Authorized:
		label = "declined"
	}
	if obs.PaymentAuthorizeTotal != nil {
		obs.PaymentAuthorizeTotal.WithLabelValues(label).Inc()
	}
	if err != nil {
		return payment.Authorization{}, fmt.Errorf("authorize payment: %w", err)
	}
	return auth, nil
}

func (s *Service) decrement(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (inventory.DecrementResult, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.Inventory.Decrement(cctx, productIDs, qtys)
}

// compensate voids the authorized payment. It runs exactly once per
// failure; a failed cancellation is logged and counted, never escalated
// and never retried.
func (s *Service) compensate(ctx context.Context, customerID, transactionID uuid.UUID) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	err := s.Payments.Cancel(cctx, customerID, transactionID)
	label := "ok"
	if err != nil {
		label = "error"
		s.Logger.Error().
			Err(err).
			Str("customer_id", customerID.String()).
			Str("transaction_id", transactionID.String()).
			Msg("compensating payment cancellation failed")
	}
	if obs.PaymentCancelTotal != nil {
		obs.PaymentCancelTotal.WithLabelValues(label).Inc()
	}
}

// commitOrder persists the order row and flips the cart to CHECKED_OUT in
// a single transaction.
func (s *Service) commitOrder(ctx context.Context, crt cart.Cart, cust customer.Customer, total decimal.Decimal, transactionID uuid.UUID) (uuid.UUID, error) {
	if s.Pool == nil {
		return uuid.New(), nil
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`UPDATE carts SET status = $2 WHERE id = $1`,
		crt.ID, cart.StatusCheckedOut,
	); err != nil {
		return uuid.Nil, err
	}

	var orderID uuid.UUID
	if err := tx.QueryRow(ctx,
		`INSERT INTO orders (customer_id, cart_id, total, payment_txn_id, status)
		 VALUES ($1, $2, $3, $4, 'COMPLETED')
		 RETURNING id`,
		cust.ID, crt.ID, total, transactionID,
	).Scan(&orderID); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return orderID, nil
}

func (s *Service) emitCompleted(ctx context.Context, orderID uuid.UUID, crt cart.Cart, customerID uuid.UUID, total decimal.Decimal, transactionID uuid.UUID) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, events.TopicCheckoutCompleted, orderID, map[string]any{
		"orderId":       orderID.String(),
		"cartId":        crt.ID.String(),
		"customerId":    customerID.String(),
		"total":         total.String(),
		"transactionId": transactionID.String(),
	})
}

func (s *Service) emitFailed(ctx context.Context, cartID uuid.UUID, reason string) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, events.TopicCheckoutFailed, cartID, map[string]any{
		"cartId": cartID.String(),
		"reason": reason,
	})
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, customer.ErrNotFound), errors.Is(err, cart.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
