package billing

import (
	"context"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

// SessionMetrics are the metered quantities of one finished session.
type SessionMetrics struct {
	DurationSeconds int64
	TokensInput     int64
	TokensOutput    int64
	TTSCharacters   int64
}

// FromTranscript derives token and character counts from a transcript,
// keeping the externally measured duration.
func FromTranscript(t *models.Transcript, durationSeconds int64) SessionMetrics {
	return SessionMetrics{
		DurationSeconds: durationSeconds,
		TokensInput:     t.InputTokens(),
		TokensOutput:    t.OutputTokens(),
		TTSCharacters:   t.TTSCharacters(),
	}
}

// CostService prices session metrics into ledger rows using the rate
// catalog and the per-model price table.
type CostService struct {
	rates  *RateCatalog
	prices *PriceService
}

func NewCostService(rates *RateCatalog, prices *PriceService) *CostService {
	return &CostService{rates: rates, prices: prices}
}

// LedgerEntries builds one row per non-zero metric. Zero-quantity metrics
// are omitted entirely, never written as zero rows.
//
// The duration row carries the connection-time costs (telephony plus
// speech-to-text, both priced per minute); token rows are priced by the
// client's model; synthesized characters are priced per character.
func (s *CostService) LedgerEntries(ctx context.Context, clientID string, conversationID *uint, modelID string, m SessionMetrics) []models.UsageLedgerEntry {
	var entries []models.UsageLedgerEntry

	add := func(metric models.MetricType, quantity int64, cost float64) {
		if quantity <= 0 {
			return
		}
		c := cost
		entries = append(entries, models.UsageLedgerEntry{
			ClientID:       clientID,
			ConversationID: conversationID,
			MetricType:     metric,
			Quantity:       float64(quantity),
			CostUSD:        &c,
		})
	}

	perMinute := s.rates.Rate(ctx, RateTwilioPerMinute) + s.rates.Rate(ctx, RateSTTPerMinute)
	add(models.MetricDuration, m.DurationSeconds, float64(m.DurationSeconds)/60*perMinute)

	price := s.prices.ModelPrice(ctx, modelID)
	add(models.MetricTokensInput, m.TokensInput, float64(m.TokensInput)*price.InputPrice)
	add(models.MetricTokensOutput, m.TokensOutput, float64(m.TokensOutput)*price.OutputPrice)

	perChar := s.rates.Rate(ctx, RateTTSPerCharacter)
	add(models.MetricTTSChars, m.TTSCharacters, float64(m.TTSCharacters)*perChar)

	return entries
}
