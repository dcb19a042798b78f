package models

import "time"

// MetricType identifies what a usage ledger row measures. The lowercase
// metrics are written once per session at finalization; the uppercase pair
// records administrative balance adjustments.
type MetricType string

const (
	MetricDuration     MetricType = "duration"
	MetricTokensInput  MetricType = "llm_tokens_input"
	MetricTokensOutput MetricType = "llm_tokens_output"
	MetricTTSChars     MetricType = "tts_characters"
	MetricManualCredit MetricType = "MANUAL_CREDIT"
	MetricManualDebit  MetricType = "MANUAL_DEBIT"
)

// UsageLedgerEntry is one immutable row of the usage ledger. Corrections are
// made with offsetting rows, never by editing. ConversationID is nil only
// when the session failed to persist a conversation record, in which case
// the whole batch is skipped and this row never exists; administrative
// adjustments always carry a nil ConversationID.
type UsageLedgerEntry struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID       string     `gorm:"size:64;not null;index" json:"client_id"`
	ConversationID *uint      `gorm:"index" json:"conversation_id,omitempty"`
	MetricType     MetricType `gorm:"size:32;not null;index" json:"metric_type"`
	Quantity       float64    `gorm:"not null" json:"quantity"`
	CostUSD        *float64   `json:"cost_usd,omitempty"`
	Description    string     `gorm:"type:text;default:''" json:"description,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (UsageLedgerEntry) TableName() string {
	return "usage_ledger"
}

// MetricTotals aggregates ledger rows of one metric type.
type MetricTotals struct {
	MetricType MetricType `json:"metric_type"`
	Quantity   float64    `json:"quantity"`
	CostUSD    float64    `json:"cost_usd"`
	Rows       int64      `json:"rows"`
}

// LedgerSummary is the cost roll-up the admin surface reports: totals by
// metric plus the realized cost per conversation minute.
type LedgerSummary struct {
	Since         time.Time      `json:"since"`
	Totals        []MetricTotals `json:"totals"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	TotalMinutes  float64        `json:"total_minutes"`
	CostPerMinute float64        `json:"cost_per_minute"`
}

// AdjustBalanceParams drives an administrative credit or debit.
// RevenueUSD carries the realized revenue when the adjustment settles a
// completed payment, so profitability reports can join cost and revenue.
type AdjustBalanceParams struct {
	ClientID     string  `json:"client_id"`
	DeltaSeconds int64   `json:"delta_seconds"`
	Reason       string  `json:"reason"`
	RevenueUSD   float64 `json:"revenue_usd,omitempty"`
}
