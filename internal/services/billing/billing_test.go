package billing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Client{},
		&models.UsageLedgerEntry{},
		&models.SystemSetting{},
		&models.ModelPrice{},
	))
	return db
}

func seedClient(t *testing.T, db *gorm.DB, id string, balance int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Client{
		ID:             id,
		Name:           "Test Client",
		BalanceSeconds: balance,
		PhoneNumber:    "+15550100",
	}).Error)
}

func storedBalance(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var client models.Client
	require.NoError(t, db.Where("id = ?", id).First(&client).Error)
	return client.BalanceSeconds
}
