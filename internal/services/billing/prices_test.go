package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

const feedPayload = `{
	"data": [
		{"id": "openai/gpt-4o-mini", "pricing": {"prompt": "0.00000015", "completion": "0.0000006", "request": "0", "image": "0.007225"}},
		{"id": "anthropic/claude-sonnet-4", "pricing": {"prompt": "0.000003", "completion": "0.000015"}},
		{"id": "", "pricing": {"prompt": "1"}}
	]
}`

func TestModelPrice_UnknownModelIsZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewPriceService(db, nil, time.Minute)

	price := svc.ModelPrice(context.Background(), "ghost/model")
	assert.Equal(t, "ghost/model", price.ID)
	assert.Zero(t, price.InputPrice)
	assert.Zero(t, price.OutputPrice)
}

func TestModelPrice_EmptyModelIDIsZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewPriceService(db, nil, time.Minute)

	price := svc.ModelPrice(context.Background(), "")
	assert.Zero(t, price.InputPrice)
}

func TestSyncPrices_UpsertsFeedRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedPayload))
	}))
	defer server.Close()

	db := newTestDB(t)
	svc := NewPriceService(db, nil, time.Minute)
	svc.feedURL = server.URL

	n, err := svc.SyncPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	price := svc.ModelPrice(context.Background(), "openai/gpt-4o-mini")
	assert.InDelta(t, 0.00000015, price.InputPrice, 1e-15)
	assert.InDelta(t, 0.0000006, price.OutputPrice, 1e-15)
	assert.InDelta(t, 0.007225, price.ImagePrice, 1e-12)
}

func TestSyncPrices_SecondSyncUpdatesExistingRows(t *testing.T) {
	payloads := []string{
		`{"data": [{"id": "m1", "pricing": {"prompt": "0.000001", "completion": "0.000002"}}]}`,
		`{"data": [{"id": "m1", "pricing": {"prompt": "0.000003", "completion": "0.000004"}}]}`,
	}
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payloads[call]))
		call++
	}))
	defer server.Close()

	db := newTestDB(t)
	svc := NewPriceService(db, nil, time.Minute)
	svc.feedURL = server.URL

	_, err := svc.SyncPrices(context.Background())
	require.NoError(t, err)
	_, err = svc.SyncPrices(context.Background())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ModelPrice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	price := svc.ModelPrice(context.Background(), "m1")
	assert.InDelta(t, 0.000003, price.InputPrice, 1e-12)
}

func TestSyncPrices_FeedErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	db := newTestDB(t)
	svc := NewPriceService(db, nil, time.Minute)
	svc.feedURL = server.URL

	_, err := svc.SyncPrices(context.Background())
	assert.Error(t, err)
}

func TestParseFeedPrice(t *testing.T) {
	assert.Equal(t, 0.0000005, parseFeedPrice("0.0000005"))
	assert.Zero(t, parseFeedPrice(""))
	assert.Zero(t, parseFeedPrice("not-a-number"))
}
