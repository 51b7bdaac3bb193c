package payment_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/storefront-eng/checkout-api/internal/payment"
)

func TestAuthorizeApproved(t *testing.T) {
	sim := payment.NewSimulator(payment.ApproveAll)

	auth, err := sim.Authorize(context.Background(), uuid.New(), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.True(t, auth.Authorized)
	require.NotEqual(t, uuid.Nil, auth.TransactionID)
	require.True(t, sim.Authorized(auth.TransactionID))
}

func TestAuthorizeDeclined(t *testing.T) {
	sim := payment.NewSimulator(func(uuid.UUID, decimal.Decimal) bool { return false })

	auth, err := sim.Authorize(context.Background(), uuid.New(), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.False(t, auth.Authorized)
	require.Equal(t, uuid.Nil, auth.TransactionID)
}

func TestAuthorizeRejectsNegativeAmount(t *testing.T) {
	sim := payment.NewSimulator(payment.ApproveAll)

	_, err := sim.Authorize(context.Background(), uuid.New(), decimal.NewFromInt(-1))
	require.Error(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	sim := payment.NewSimulator(payment.ApproveAll)
	customerID := uuid.New()

	auth, err := sim.Authorize(context.Background(), customerID, decimal.NewFromInt(42))
	require.NoError(t, err)

	require.NoError(t, sim.Cancel(context.Background(), customerID, auth.TransactionID))
	require.False(t, sim.Authorized(auth.TransactionID))

	// Double-cancel and cancel-of-unknown are no-ops.
	require.NoError(t, sim.Cancel(context.Background(), customerID, auth.TransactionID))
	require.NoError(t, sim.Cancel(context.Background(), customerID, uuid.New()))
}

func TestAuthorizeHonoursContext(t *testing.T) {
	sim := payment.NewSimulator(payment.ApproveAll)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Authorize(ctx, uuid.New(), decimal.NewFromInt(10))
	require.ErrorIs(t, err, context.Canceled)
}
