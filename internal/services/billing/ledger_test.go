package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

func costPtr(v float64) *float64 { return &v }

func TestAppend_RejectsNegativeQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)

	err := svc.Append(context.Background(), models.UsageLedgerEntry{
		ClientID:   "client-1",
		MetricType: models.MetricDuration,
		Quantity:   -1,
	})
	assert.Error(t, err)
}

func TestAppendBatch_EmptyIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)

	require.NoError(t, svc.AppendBatch(context.Background(), nil))

	entries, err := svc.ListByClient(context.Background(), "client-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListByConversation_ReturnsSessionRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	convID := uint(7)

	batch := []models.UsageLedgerEntry{
		{ClientID: "client-1", ConversationID: &convID, MetricType: models.MetricDuration, Quantity: 730, CostUSD: costPtr(0.16)},
		{ClientID: "client-1", ConversationID: &convID, MetricType: models.MetricTokensInput, Quantity: 20, CostUSD: costPtr(0.00001)},
	}
	require.NoError(t, svc.AppendBatch(context.Background(), batch))

	entries, err := svc.ListByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.MetricDuration, entries[0].MetricType)
	assert.Equal(t, models.MetricTokensInput, entries[1].MetricType)
}

func TestSummary_RollsUpByMetricAndExcludesManualRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	rows := []models.UsageLedgerEntry{
		{ClientID: "client-1", MetricType: models.MetricDuration, Quantity: 600, CostUSD: costPtr(0.128)},
		{ClientID: "client-1", MetricType: models.MetricDuration, Quantity: 120, CostUSD: costPtr(0.0256)},
		{ClientID: "client-1", MetricType: models.MetricTokensOutput, Quantity: 30, CostUSD: costPtr(0.000045)},
		// Revenue rows must not count as cost.
		{ClientID: "client-1", MetricType: models.MetricManualCredit, Quantity: 600, CostUSD: costPtr(9.99)},
		// Other tenants are out of scope.
		{ClientID: "client-2", MetricType: models.MetricDuration, Quantity: 60, CostUSD: costPtr(0.0128)},
	}
	require.NoError(t, svc.AppendBatch(ctx, rows))

	summary, err := svc.Summary(ctx, "client-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.InDelta(t, 0.128+0.0256+0.000045, summary.TotalCostUSD, 1e-9)
	assert.InDelta(t, 12.0, summary.TotalMinutes, 1e-9)
	assert.InDelta(t, summary.TotalCostUSD/12.0, summary.CostPerMinute, 1e-9)

	byMetric := make(map[models.MetricType]models.MetricTotals)
	for _, total := range summary.Totals {
		byMetric[total.MetricType] = total
	}
	assert.Equal(t, 720.0, byMetric[models.MetricDuration].Quantity)
	assert.Equal(t, int64(2), byMetric[models.MetricDuration].Rows)
	assert.Equal(t, 600.0, byMetric[models.MetricManualCredit].Quantity)
}

func TestSummary_SinceFiltersOldRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	old := models.UsageLedgerEntry{
		ClientID:   "client-1",
		MetricType: models.MetricDuration,
		Quantity:   300,
		CostUSD:    costPtr(0.064),
		CreatedAt:  time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, db.Create(&old).Error)

	summary, err := svc.Summary(ctx, "client-1", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCostUSD)
	assert.Empty(t, summary.Totals)
}
