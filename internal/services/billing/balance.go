package billing

import (
	"context"
	"fmt"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// BalanceService owns the per-client prepaid balance, denominated in seconds
// of conversation time.
//
// Mutations are a read of the current stored value followed by a write, not a
// compare-and-swap: two concurrent writers to the same client can lose an
// update. Tenants run at most a handful of concurrent sessions against their
// plan, so the exposure is small; swapping the write for an atomic decrement
// (gorm.Expr) is the upgrade path if that stops being true.
type BalanceService struct {
	db     *gorm.DB
	ledger *LedgerService
}

func NewBalanceService(db *gorm.DB, ledger *LedgerService) *BalanceService {
	return &BalanceService{db: db, ledger: ledger}
}

// GetBalance returns the client's remaining seconds. Any read failure is
// treated as a zero balance so callers fail closed.
func (s *BalanceService) GetBalance(ctx context.Context, clientID string) int64 {
	var client models.Client
	err := s.db.WithContext(ctx).
		Select("balance_seconds").
		Where("id = ?", clientID).
		First(&client).Error
	if err != nil {
		fiberlog.Warnf("BalanceService: balance read failed for client %s: %v", clientID, err)
		return 0
	}
	return client.BalanceSeconds
}

// Deduct subtracts seconds from the client's stored balance. The balance may
// go negative; the last writer settles it to a consistent value.
func (s *BalanceService) Deduct(ctx context.Context, clientID string, seconds int64) error {
	if seconds <= 0 {
		return nil
	}

	var client models.Client
	if err := s.db.WithContext(ctx).
		Select("balance_seconds").
		Where("id = ?", clientID).
		First(&client).Error; err != nil {
		return fmt.Errorf("failed to read balance for client %s: %w", clientID, err)
	}

	newBalance := client.BalanceSeconds - seconds
	if err := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", clientID).
		Update("balance_seconds", newBalance).Error; err != nil {
		return fmt.Errorf("failed to write balance for client %s: %w", clientID, err)
	}

	fiberlog.Debugf("BalanceService: deducted %ds from client %s, balance now %ds", seconds, clientID, newBalance)
	return nil
}

// Adjust applies an administrative credit or debit and unconditionally
// appends the matching MANUAL_CREDIT/MANUAL_DEBIT ledger row. RevenueUSD,
// when non-zero, is stored as the row's cost for profitability reporting.
func (s *BalanceService) Adjust(ctx context.Context, params models.AdjustBalanceParams) error {
	if params.DeltaSeconds == 0 {
		return fmt.Errorf("delta_seconds must be non-zero")
	}

	var client models.Client
	if err := s.db.WithContext(ctx).
		Select("balance_seconds").
		Where("id = ?", params.ClientID).
		First(&client).Error; err != nil {
		return fmt.Errorf("failed to read balance for client %s: %w", params.ClientID, err)
	}

	newBalance := client.BalanceSeconds + params.DeltaSeconds
	if err := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", params.ClientID).
		Update("balance_seconds", newBalance).Error; err != nil {
		return fmt.Errorf("failed to write balance for client %s: %w", params.ClientID, err)
	}

	metric := models.MetricManualCredit
	quantity := params.DeltaSeconds
	if params.DeltaSeconds < 0 {
		metric = models.MetricManualDebit
		quantity = -params.DeltaSeconds
	}

	entry := models.UsageLedgerEntry{
		ClientID:    params.ClientID,
		MetricType:  metric,
		Quantity:    float64(quantity),
		Description: params.Reason,
	}
	if params.RevenueUSD != 0 {
		revenue := params.RevenueUSD
		entry.CostUSD = &revenue
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("balance adjusted but ledger append failed: %w", err)
	}

	fiberlog.Infof("BalanceService: adjusted client %s by %ds (%s), balance now %ds",
		params.ClientID, params.DeltaSeconds, params.Reason, newBalance)
	return nil
}
