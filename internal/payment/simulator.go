package payment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorization is the outcome of an authorize call. TransactionID is set
// only when Authorized is true.
type Authorization struct {
	Authorized    bool
	TransactionID uuid.UUID
}

// DecisionFunc decides whether a charge is approved. Approval policy
// (including simulated randomness) lives here, never in the checkout core.
type DecisionFunc func(customerID uuid.UUID, amount decimal.Decimal) bool

// ApproveAll approves every charge. The default for tests and local runs.
func ApproveAll(uuid.UUID, decimal.Decimal) bool { return true }

// RandomApproval approves the given fraction of charges.
func RandomApproval(ratio float64) DecisionFunc {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex
	return func(uuid.UUID, decimal.Decimal) bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64() <= ratio
	}
}

type charge struct {
	customerID uuid.UUID
	amount     decimal.Decimal
}

// Simulator is an in-process stand-in for a payment gateway. It owns its
// state; callers only see the Authorize/Cancel contract.
type Simulator struct {
	Decide DecisionFunc

	mu         sync.Mutex
	authorized map[uuid.UUID]charge
	cancelled  map[uuid.UUID]struct{}
}

// NewSimulator builds a simulator with the provided decision policy.
func NewSimulator(decide DecisionFunc) *Simulator {
	if decide == nil {
		decide = ApproveAll
	}
	return &Simulator{
		Decide:     decide,
		authorized: make(map[uuid.UUID]charge),
		cancelled:  make(map[uuid.UUID]struct{}),
	}
}

// Authorize asks the gateway to reserve the amount for the customer. A
// refused charge is not an error; it returns Authorized false.
func (s *Simulator) Authorize(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}
	if amount.IsNegative() {
		return Authorization{}, errors.New("payment: negative amount")
	}

	decide := s.Decide
	if decide == nil {
		decide = ApproveAll
	}
	if !decide(customerID, amount) {
		return Authorization{}, nil
	}

	txnID := uuid.New()
	s.mu.Lock()
	if s.authorized == nil {
		s.authorized = make(map[uuid.UUID]charge)
	}
	s.authorized[txnID] = charge{customerID: customerID, amount: amount}
	s.mu.Unlock()

	return Authorization{Authorized: true, TransactionID: txnID}, nil
}

// Cancel voids a previously authorized transaction. Cancelling an unknown
// or already cancelled transaction is a no-op.
func (s *Simulator) Cancel(ctx context.Context, customerID uuid.UUID, transactionID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorized[transactionID]; !ok {
		return nil
	}
	delete(s.authorized, transactionID)
	if s.cancelled == nil {
		s.cancelled = make(map[uuid.UUID]struct{})
	}
	s.cancelled[transactionID] = struct{}{}
	return nil
}

// Authorized reports whether the transaction currently holds an
// authorization. Used by tests and the seeder.
func (s *Simulator) Authorized(transactionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.authorized[transactionID]
	return ok
}
