package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"gorm.io/gorm"
)

// LedgerService appends to and reads the usage ledger, the system of record
// for metered quantities and their USD cost. Rows are immutable once
// written; corrections are offsetting rows.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Append writes a single ledger row.
func (s *LedgerService) Append(ctx context.Context, entry models.UsageLedgerEntry) error {
	if entry.Quantity < 0 {
		return fmt.Errorf("ledger quantity must be non-negative, got %f", entry.Quantity)
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// AppendBatch writes one session's metric rows in a single insert.
func (s *LedgerService) AppendBatch(ctx context.Context, entries []models.UsageLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.Quantity < 0 {
			return fmt.Errorf("ledger quantity must be non-negative, got %f for %s", e.Quantity, e.MetricType)
		}
	}
	if err := s.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to append ledger batch: %w", err)
	}
	return nil
}

// ListByClient returns a client's ledger rows, newest first.
func (s *LedgerService) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]models.UsageLedgerEntry, error) {
	var entries []models.UsageLedgerEntry

	query := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// ListByConversation returns the metric rows a finalized session wrote.
func (s *LedgerService) ListByConversation(ctx context.Context, conversationID uint) ([]models.UsageLedgerEntry, error) {
	var entries []models.UsageLedgerEntry
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Summary rolls the ledger up by metric since the given time: total
// quantity, total cost and, when duration rows exist, cost per minute.
func (s *LedgerService) Summary(ctx context.Context, clientID string, since time.Time) (*models.LedgerSummary, error) {
	query := s.db.WithContext(ctx).
		Model(&models.UsageLedgerEntry{}).
		Where("created_at >= ?", since)
	if clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var totals []models.MetricTotals
	if err := query.
		Select(
			"metric_type",
			"COALESCE(SUM(quantity), 0) as quantity",
			"COALESCE(SUM(cost_usd), 0) as cost_usd",
			"COUNT(*) as rows",
		).
		Group("metric_type").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize ledger: %w", err)
	}

	summary := &models.LedgerSummary{
		Since:  since,
		Totals: totals,
	}
	for _, t := range totals {
		// Administrative rows carry revenue, not cost.
		if t.MetricType == models.MetricManualCredit || t.MetricType == models.MetricManualDebit {
			continue
		}
		summary.TotalCostUSD += t.CostUSD
		if t.MetricType == models.MetricDuration {
			summary.TotalMinutes = t.Quantity / 60
		}
	}
	if summary.TotalMinutes > 0 {
		summary.CostPerMinute = summary.TotalCostUSD / summary.TotalMinutes
	}

	return summary, nil
}
