package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

func TestGetBalance_UnknownClientFailsClosed(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))

	assert.Equal(t, int64(0), svc.GetBalance(context.Background(), "missing"))
}

func TestDeduct_SubtractsFromStoredBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))
	seedClient(t, db, "client-1", 100)

	require.NoError(t, svc.Deduct(context.Background(), "client-1", 45))
	assert.Equal(t, int64(55), storedBalance(t, db, "client-1"))
}

func TestDeduct_MayDriveBalanceNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))
	seedClient(t, db, "client-1", 30)

	require.NoError(t, svc.Deduct(context.Background(), "client-1", 42))
	assert.Equal(t, int64(-12), storedBalance(t, db, "client-1"))
}

func TestDeduct_NonPositiveSecondsIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))
	seedClient(t, db, "client-1", 100)

	require.NoError(t, svc.Deduct(context.Background(), "client-1", 0))
	require.NoError(t, svc.Deduct(context.Background(), "client-1", -5))
	assert.Equal(t, int64(100), storedBalance(t, db, "client-1"))
}

func TestAdjust_CreditWritesAuditRow(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewBalanceService(db, ledger)
	seedClient(t, db, "client-1", 100)

	err := svc.Adjust(context.Background(), models.AdjustBalanceParams{
		ClientID:     "client-1",
		DeltaSeconds: 600,
		Reason:       "Stripe purchase: 10 minutes",
		RevenueUSD:   9.99,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(700), storedBalance(t, db, "client-1"))

	entries, err := ledger.ListByClient(context.Background(), "client-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MetricManualCredit, entries[0].MetricType)
	assert.Equal(t, 600.0, entries[0].Quantity)
	require.NotNil(t, entries[0].CostUSD)
	assert.Equal(t, 9.99, *entries[0].CostUSD)
	assert.Nil(t, entries[0].ConversationID)
}

func TestAdjust_DebitWritesAuditRowWithoutRevenue(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewBalanceService(db, ledger)
	seedClient(t, db, "client-1", 500)

	err := svc.Adjust(context.Background(), models.AdjustBalanceParams{
		ClientID:     "client-1",
		DeltaSeconds: -120,
		Reason:       "chargeback",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(380), storedBalance(t, db, "client-1"))

	entries, err := ledger.ListByClient(context.Background(), "client-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MetricManualDebit, entries[0].MetricType)
	assert.Equal(t, 120.0, entries[0].Quantity)
	assert.Nil(t, entries[0].CostUSD)
	assert.Equal(t, "chargeback", entries[0].Description)
}

func TestAdjust_ZeroDeltaRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))
	seedClient(t, db, "client-1", 100)

	err := svc.Adjust(context.Background(), models.AdjustBalanceParams{
		ClientID: "client-1",
		Reason:   "noop",
	})
	assert.Error(t, err)
}

func TestAdjust_UnknownClientFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewBalanceService(db, NewLedgerService(db))

	err := svc.Adjust(context.Background(), models.AdjustBalanceParams{
		ClientID:     "ghost",
		DeltaSeconds: 60,
		Reason:       "credit",
	})
	assert.Error(t, err)
}
